package cache

import (
	"sort"
	"sync"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// RowCache remembers which entity rows are persisted for each scene so a
// save only deletes rows that left the scene instead of rewriting all of them.
type RowCache struct {
	m    sync.Mutex
	rows map[string]map[string]struct{}
}

func NewRowCache() *RowCache {
	return &RowCache{
		rows: make(map[string]map[string]struct{}),
	}
}

func (c *RowCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.rows = make(map[string]map[string]struct{})
}

// Known reports whether the persisted rows of a scene are tracked.
func (c *RowCache) Known(sceneID string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.rows[sceneID]
	return ok
}

// Set records ids as the complete persisted row set of a scene.
func (c *RowCache) Set(sceneID string, ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	c.m.Lock()
	defer c.m.Unlock()
	c.rows[sceneID] = set
}

// Stale returns the persisted ids of a scene that are absent from current,
// sorted.
func (c *RowCache) Stale(sceneID string, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, id := range current {
		keep[id] = struct{}{}
	}
	c.m.Lock()
	defer c.m.Unlock()
	var stale []string
	for id := range c.rows[sceneID] {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}

func (c *RowCache) Forget(sceneID string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.rows, sceneID)
}

// SceneCache holds the latest persisted snapshot of each scene to avoid
// subsequent db reads on load.
type SceneCache struct {
	mu     sync.RWMutex
	scenes map[string]*core.Scene
}

func NewSceneCache() *SceneCache {
	return &SceneCache{
		scenes: make(map[string]*core.Scene),
	}
}

// Get returns a copy of the cached scene.
func (c *SceneCache) Get(id string) (*core.Scene, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scenes[id]
	if !ok {
		return nil, false
	}
	return cloneScene(s), true
}

// Set stores a copy of s.
func (c *SceneCache) Set(s *core.Scene) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenes[s.ID] = cloneScene(s)
}

func (c *SceneCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scenes, id)
}

func (c *SceneCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scenes)
}

func (c *SceneCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenes = make(map[string]*core.Scene)
}

func cloneScene(s *core.Scene) *core.Scene {
	c := *s
	c.Floors = append([]core.Floor(nil), s.Floors...)
	c.Entities = core.CloneEntities(s.Entities)
	return &c
}
