package scenectx

import (
	"log/slog"
	"sync"
)

// Context holds the scene and floor currently being edited.
type Context struct {
	mu        sync.RWMutex
	sceneID   string
	sceneName string
	floor     string
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{sceneName: "No scene loaded"}
}

// SetScene records the loaded scene.
func (c *Context) SetScene(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sceneID = id
	c.sceneName = name
}

// SetFloor records the active floor label.
func (c *Context) SetFloor(floor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.floor = floor
}

// Scene returns the loaded scene id and name.
func (c *Context) Scene() (id, name string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sceneID, c.sceneName
}

// Floor returns the active floor label.
func (c *Context) Floor() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.floor
}

// Attrs returns the log attributes describing the current context. It is
// meant to be passed to SlogManager.WithContext.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs := []slog.Attr{slog.String("scene", c.sceneName)}
	if c.sceneID != "" {
		attrs = append(attrs, slog.String("sceneId", c.sceneID))
	}
	if c.floor != "" {
		attrs = append(attrs, slog.String("floor", c.floor))
	}
	return attrs
}
