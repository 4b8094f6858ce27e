// Package sqlitestorage keeps scenes in a SQLite database, in memory by
// default, and snapshots it to disk with VACUUM INTO. Persistence itself is
// the shared GORM backend.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/twinlayout/sceneedit/internal/cache"
	"github.com/twinlayout/sceneedit/internal/database"
	"github.com/twinlayout/sceneedit/internal/logging"
	gormstorage "github.com/twinlayout/sceneedit/internal/storage/gorm"
)

type Config struct {
	// DumpInterval is how often a changed database is snapshotted.
	DumpInterval time.Duration
	DumpPath     string
	// DSN replaces the shared in-memory database, mainly for tests.
	DSN string
}

type Backend struct {
	*gormstorage.Backend
	cfg Config
	log *logging.SlogManager

	// revision of the GORM backend at the last snapshot
	dumped uint64
	dumpMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

func New(cfg Config, rows *cache.RowCache, scenes *cache.SceneCache, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetSqliteDB(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			Rows:       rows,
			Scenes:     scenes,
			LogManager: logManager,
		}),
		cfg:  cfg,
		log:  logManager,
		stop: make(chan struct{}),
	}, nil
}

// Init migrates the schema and, with a dump path and interval, starts
// periodic snapshots.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.loopDone = make(chan struct{})
		go b.snapshotLoop()
	}
	return nil
}

// Close flushes pending saves and writes a last snapshot.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	if b.loopDone != nil {
		<-b.loopDone
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	_, err := b.snapshot(true)
	return err
}

// Dump snapshots the database to DumpPath now.
func (b *Backend) Dump() error {
	_, err := b.snapshot(true)
	return err
}

// snapshot writes DumpPath unless nothing was written since the last one
// and force is false. It reports whether a file was written.
func (b *Backend) snapshot(force bool) (bool, error) {
	b.dumpMu.Lock()
	defer b.dumpMu.Unlock()

	rev := b.Revision()
	if !force && rev == b.dumped {
		return false, nil
	}
	if err := database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath); err != nil {
		return false, err
	}
	b.dumped = rev
	return true, nil
}

func (b *Backend) snapshotLoop() {
	defer close(b.loopDone)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			start := time.Now()
			wrote, err := b.snapshot(false)
			switch {
			case err != nil:
				b.log.WriteLog("sqlite:snapshot", fmt.Sprintf("Error writing %s: %v", b.cfg.DumpPath, err), "ERROR")
			case wrote:
				b.log.WriteLog("sqlite:snapshot", fmt.Sprintf("Wrote %s in %s", b.cfg.DumpPath, time.Since(start)), "DEBUG")
			}
		}
	}
}
