// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/twinlayout/sceneedit/internal/config"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// Backend keeps scenes in memory and exports each save to a JSON file
type Backend struct {
	cfg    config.MemoryConfig
	scenes map[string]*core.Scene

	lastExportPath string
	lastExportMeta core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		scenes: make(map[string]*core.Scene),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveScene stores a copy of the scene and, when an output directory is
// configured, writes it to disk.
func (b *Backend) SaveScene(s *core.Scene) error {
	if s.ID == "" {
		return fmt.Errorf("scene has no id")
	}
	snapshot := storage.CloneScene(s)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.scenes[snapshot.ID] = snapshot
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON(snapshot)
}

// LoadScene returns a copy of a stored scene, falling back to the export
// directory for scenes saved by an earlier process.
func (b *Backend) LoadScene(id string) (*core.Scene, error) {
	b.mu.RLock()
	s, ok := b.scenes[id]
	b.mu.RUnlock()
	if ok {
		return storage.CloneScene(s), nil
	}

	if b.cfg.OutputDir == "" {
		return nil, fmt.Errorf("%w: %s", storage.ErrSceneNotFound, id)
	}
	s, err := b.readExport(id)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.scenes[id] = s
	b.mu.Unlock()
	return storage.CloneScene(s), nil
}

// ListScenes returns the ids of all known scenes, sorted.
func (b *Backend) ListScenes() ([]string, error) {
	b.mu.RLock()
	seen := make(map[string]struct{}, len(b.scenes))
	for id := range b.scenes {
		seen[id] = struct{}{}
	}
	b.mu.RUnlock()

	if b.cfg.OutputDir != "" {
		onDisk, err := b.exportedIDs()
		if err != nil {
			return nil, err
		}
		for _, id := range onDisk {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteScene drops a scene from memory and removes its export.
func (b *Backend) DeleteScene(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, inMemory := b.scenes[id]
	delete(b.scenes, id)

	removed := false
	if b.cfg.OutputDir != "" {
		var err error
		removed, err = b.removeExport(id)
		if err != nil {
			return err
		}
	}
	if !inMemory && !removed {
		return fmt.Errorf("%w: %s", storage.ErrSceneNotFound, id)
	}
	return nil
}

// GetExportedFilePath returns the path to the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata about the last exported scene
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
