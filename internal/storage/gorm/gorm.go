// Package gormstorage implements the storage.Backend interface on top of any
// GORM dialect. Saves are queued per scene and drained by a background
// writer goroutine; the SQLite and Postgres backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twinlayout/sceneedit/internal/cache"
	"github.com/twinlayout/sceneedit/internal/database"
	"github.com/twinlayout/sceneedit/internal/logging"
	"github.com/twinlayout/sceneedit/internal/model"
	"github.com/twinlayout/sceneedit/internal/model/convert"
	"github.com/twinlayout/sceneedit/internal/queue"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultWriteInterval is how often the writer drains pending saves.
const DefaultWriteInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	Rows       *cache.RowCache
	Scenes     *cache.SceneCache
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend using GORM with queue-based writes.
type Backend struct {
	deps     Dependencies
	pending  *queue.Queue[string, convert.Rows]
	interval time.Duration

	// serializes DB writes and deletes
	writeMu sync.Mutex
	// bumped after every committed write or delete
	revision atomic.Uint64

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Rows == nil {
		deps.Rows = cache.NewRowCache()
	}
	if deps.Scenes == nil {
		deps.Scenes = cache.NewSceneCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps:     deps,
		pending:  queue.New[string, convert.Rows](),
		interval: DefaultWriteInterval,
	}
}

// SetWriteInterval changes the writer period. Must be called before Init.
func (b *Backend) SetWriteInterval(d time.Duration) {
	if d > 0 {
		b.interval = d
	}
}

// Revision changes whenever a write or delete reaches the database.
func (b *Backend) Revision() uint64 {
	return b.revision.Load()
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return storage.ErrNotInitialized
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("gormstorage:Init", fmt.Sprintf("Schema ready on %s", b.deps.DB.Name()), "INFO")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and flushes pending saves.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// SaveScene converts the scene and queues it for the writer. A newer save of
// the same scene supersedes a pending one.
func (b *Backend) SaveScene(s *core.Scene) error {
	if s.ID == "" {
		return fmt.Errorf("scene has no id")
	}
	rows, err := convert.CoreToScene(s)
	if err != nil {
		return fmt.Errorf("failed to convert scene %s: %w", s.ID, err)
	}
	if b.pending.Push(s.ID, rows) {
		b.deps.LogManager.WriteLog("gormstorage:SaveScene", fmt.Sprintf("Superseded pending save of %s", s.ID), "DEBUG")
	}
	b.deps.Scenes.Set(s)
	return nil
}

// Pending returns the number of scenes waiting to be written.
func (b *Backend) Pending() int {
	return b.pending.Len()
}

// Flush writes every pending scene synchronously. Failed scenes are
// re-queued unless a newer save arrived meanwhile.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var errs []error
	for _, rows := range b.pending.GetAndEmpty() {
		if err := b.writeScene(rows); err != nil {
			b.deps.LogManager.WriteLog(":DB:WRITER:", fmt.Sprintf("Error writing scene %s: %v", rows.Scene.ID, err), "ERROR")
			if _, newer := b.pending.Get(rows.Scene.ID); !newer {
				b.pending.Push(rows.Scene.ID, rows)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadScene returns the latest snapshot of a scene, preferring the cache and
// pending writes over a DB read.
func (b *Backend) LoadScene(id string) (*core.Scene, error) {
	if s, ok := b.deps.Scenes.Get(id); ok {
		return s, nil
	}
	if rows, ok := b.pending.Get(id); ok {
		return convert.SceneToCore(rows)
	}
	if b.deps.DB == nil {
		return nil, storage.ErrNotInitialized
	}

	var rows convert.Rows
	err := b.deps.DB.Where("id = ?", id).First(&rows.Scene).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrSceneNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scene %s: %w", id, err)
	}
	if err := b.deps.DB.Where("scene_id = ?", id).Order("ordinal").Find(&rows.Floors).Error; err != nil {
		return nil, fmt.Errorf("failed to load floors of %s: %w", id, err)
	}
	if err := b.deps.DB.Where("scene_id = ?", id).Order("ordinal").Find(&rows.Entities).Error; err != nil {
		return nil, fmt.Errorf("failed to load entities of %s: %w", id, err)
	}

	s, err := convert.SceneToCore(rows)
	if err != nil {
		return nil, err
	}
	b.deps.Rows.Set(id, rows.EntityIDs())
	b.deps.Scenes.Set(s)
	return s, nil
}

// ListScenes returns persisted and pending scene ids, sorted.
func (b *Backend) ListScenes() ([]string, error) {
	seen := make(map[string]struct{})
	for _, id := range b.pending.Keys() {
		seen[id] = struct{}{}
	}
	if b.deps.DB != nil {
		var ids []string
		if err := b.deps.DB.Model(&model.Scene{}).Pluck("id", &ids).Error; err != nil {
			return nil, fmt.Errorf("failed to list scenes: %w", err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteScene removes a scene, its floors and its entities.
func (b *Backend) DeleteScene(id string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	wasPending := b.pending.Remove(id)
	b.deps.Scenes.Delete(id)
	b.deps.Rows.Forget(id)

	if b.deps.DB == nil {
		if wasPending {
			return nil
		}
		return fmt.Errorf("%w: %s", storage.ErrSceneNotFound, id)
	}

	var deleted int64
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scene_id = ?", id).Delete(&model.EntityRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scene_id = ?", id).Delete(&model.FloorLevel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Scene{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete scene %s: %w", id, err)
	}
	b.revision.Add(1)
	if deleted == 0 && !wasPending {
		return fmt.Errorf("%w: %s", storage.ErrSceneNotFound, id)
	}
	return nil
}

// writeScene upserts a scene's rows in one transaction. Entity rows that left
// the scene since the last write are deleted; when the previous row set is
// unknown every row of the scene is replaced.
func (b *Backend) writeScene(rows convert.Rows) error {
	id := rows.Scene.ID
	ids := rows.EntityIDs()
	known := b.deps.Rows.Known(id)
	stale := b.deps.Rows.Stale(id, ids)

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		upsert := clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}
		if err := tx.Clauses(upsert).Create(&rows.Scene).Error; err != nil {
			return fmt.Errorf("scene: %w", err)
		}

		if err := tx.Where("scene_id = ?", id).Delete(&model.FloorLevel{}).Error; err != nil {
			return fmt.Errorf("floors: %w", err)
		}
		if len(rows.Floors) > 0 {
			if err := tx.Create(&rows.Floors).Error; err != nil {
				return fmt.Errorf("floors: %w", err)
			}
		}

		del := tx.Where("scene_id = ?", id)
		if known {
			del = del.Where("entity_id IN ?", stale)
		}
		if !known || len(stale) > 0 {
			if err := del.Delete(&model.EntityRecord{}).Error; err != nil {
				return fmt.Errorf("entities: %w", err)
			}
		}
		if len(rows.Entities) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows.Entities).Error; err != nil {
				return fmt.Errorf("entities: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.deps.Rows.Set(id, ids)
	b.revision.Add(1)
	return nil
}

// writeLoop periodically drains pending saves into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.pending.Empty() {
				continue
			}
			start := time.Now()
			if err := b.Flush(); err == nil {
				b.deps.LogManager.WriteLog(":DB:WRITER:", fmt.Sprintf("Wrote scenes in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
