// Package postgres stores scenes in PostgreSQL through the shared GORM
// backend. When configured with a fallback dump path it keeps editing
// against in-memory SQLite if the server is unreachable.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/twinlayout/sceneedit/internal/cache"
	"github.com/twinlayout/sceneedit/internal/config"
	"github.com/twinlayout/sceneedit/internal/database"
	"github.com/twinlayout/sceneedit/internal/logging"
	gormstorage "github.com/twinlayout/sceneedit/internal/storage/gorm"
)

type Dependencies struct {
	// DB skips connecting when set.
	DB         *gorm.DB
	Config     config.DBConfig
	Rows       *cache.RowCache
	Scenes     *cache.SceneCache
	LogManager *logging.SlogManager
	Logger     zerolog.Logger
}

type Backend struct {
	*gormstorage.Backend
	deps Dependencies
	db   *database.Manager
}

// New creates the backend; Init connects.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps, db: database.NewManager(deps.Logger)}
}

// Fallback reports whether scenes are held in in-memory SQLite because
// PostgreSQL could not be reached.
func (b *Backend) Fallback() bool {
	return b.db.Fallback
}

func (b *Backend) Init() error {
	if b.deps.DB != nil {
		b.db.DB = b.deps.DB
	} else if err := b.db.Connect(b.deps.Config, b.deps.Config.FallbackDumpPath != ""); err != nil {
		return err
	}
	if b.db.Fallback {
		b.deps.LogManager.WriteLog("postgres:Init", fmt.Sprintf("PostgreSQL at %s unreachable, scenes go to %s on close", b.deps.Config.Host, b.deps.Config.FallbackDumpPath), "WARN")
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.db.DB,
		Rows:       b.deps.Rows,
		Scenes:     b.deps.Scenes,
		LogManager: b.deps.LogManager,
	})
	return b.Backend.Init()
}

// Close flushes pending writes and, in fallback mode, dumps the scene
// tables. Closing before Init is a no-op.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.db.Fallback {
		return b.db.Dump(b.deps.Config.FallbackDumpPath)
	}
	return nil
}
