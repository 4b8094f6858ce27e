// pkg/core/scene.go
package core

import "time"

// Floor is one level of a scene. Its ID doubles as the floorLevel label
// stamped on the entities that belong to it.
type Floor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Scene is a facility layout: its floors plus the flat entity collection
// spanning all of them.
type Scene struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Floors    []Floor   `json:"floors"`
	Entities  []Entity  `json:"entities"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Floor returns the floor with the given label.
func (s *Scene) Floor(label string) (Floor, bool) {
	for _, f := range s.Floors {
		if f.ID == label {
			return f, true
		}
	}
	return Floor{}, false
}

// UploadMetadata describes an exported scene file for the upload API.
type UploadMetadata struct {
	SceneID     string
	SceneName   string
	FloorCount  int
	EntityCount int
	Tag         string
}
