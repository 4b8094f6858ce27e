// Package v1 contains the v1 export format for scene data.
// The document is a floor descriptor, so exported files can be fed back
// through the scene importer.
package v1

import "github.com/twinlayout/sceneedit/pkg/core"

// Version is written into every v1 document.
const Version = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version     int           `json:"version"`
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	UpdatedAt   string        `json:"updatedAt,omitempty"`
	FloorLevels []FloorLevel  `json:"floorLevels"`
	Objects     []core.Entity `json:"objects,omitempty"` // entities not bound to a floor
}

// FloorLevel is one floor with the entities stamped with its label.
type FloorLevel struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Objects []core.Entity `json:"objects"`
}
