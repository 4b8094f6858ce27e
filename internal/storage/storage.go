// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/twinlayout/sceneedit/pkg/core"
)

var (
	// ErrSceneNotFound is returned by LoadScene and DeleteScene for unknown ids.
	ErrSceneNotFound = errors.New("scene not found")
	// ErrNotInitialized is returned when a backend is used before Init.
	ErrNotInitialized = errors.New("storage backend not initialized")
)

// Backend is the interface all scene storage implementations must satisfy.
// SaveScene receives a snapshot the backend may keep; callers must not
// mutate it afterwards.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	SaveScene(s *core.Scene) error
	LoadScene(id string) (*core.Scene, error)
	ListScenes() ([]string, error)
	DeleteScene(id string) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the scene service.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Metadata summarises a scene for upload.
func Metadata(s *core.Scene, tag string) core.UploadMetadata {
	return core.UploadMetadata{
		SceneID:     s.ID,
		SceneName:   s.Name,
		FloorCount:  len(s.Floors),
		EntityCount: len(s.Entities),
		Tag:         tag,
	}
}

// CloneScene deep-copies a scene so backends never share entity slices with
// the editor.
func CloneScene(s *core.Scene) *core.Scene {
	c := *s
	c.Floors = append([]core.Floor(nil), s.Floors...)
	c.Entities = core.CloneEntities(s.Entities)
	return &c
}
