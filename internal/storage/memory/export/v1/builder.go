package v1

import (
	"fmt"
	"time"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// Build converts a scene into the v1 export format. Floors keep the scene's
// order; labels that no declared floor owns get a floor entry of their own,
// in order of first appearance.
func Build(s *core.Scene) Export {
	export := Export{
		Version:     Version,
		ID:          s.ID,
		Name:        s.Name,
		FloorLevels: make([]FloorLevel, 0, len(s.Floors)),
	}
	if !s.UpdatedAt.IsZero() {
		export.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}

	slot := make(map[string]int, len(s.Floors))
	for _, f := range s.Floors {
		slot[f.ID] = len(export.FloorLevels)
		export.FloorLevels = append(export.FloorLevels, FloorLevel{ID: f.ID, Name: f.Name, Objects: []core.Entity{}})
	}

	for _, e := range s.Entities {
		if e.FloorLevel == "" {
			export.Objects = append(export.Objects, e.Clone())
			continue
		}
		i, ok := slot[e.FloorLevel]
		if !ok {
			i = len(export.FloorLevels)
			slot[e.FloorLevel] = i
			export.FloorLevels = append(export.FloorLevels, FloorLevel{ID: e.FloorLevel, Name: e.FloorLevel, Objects: []core.Entity{}})
		}
		export.FloorLevels[i].Objects = append(export.FloorLevels[i].Objects, e.Clone())
	}

	return export
}

// Scene rebuilds a scene from an export. Floorless objects come first,
// followed by each floor's objects in floor order.
func (e Export) Scene() (*core.Scene, error) {
	if e.Version != Version {
		return nil, fmt.Errorf("unsupported export version %d", e.Version)
	}

	s := &core.Scene{
		ID:       e.ID,
		Name:     e.Name,
		Floors:   make([]core.Floor, 0, len(e.FloorLevels)),
		Entities: core.CloneEntities(e.Objects),
	}
	if e.UpdatedAt != "" {
		t, err := time.Parse(time.RFC3339, e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid updatedAt: %w", err)
		}
		s.UpdatedAt = t
	}

	for _, fl := range e.FloorLevels {
		s.Floors = append(s.Floors, core.Floor{ID: fl.ID, Name: fl.Name})
		for _, obj := range fl.Objects {
			obj = obj.Clone()
			obj.FloorLevel = fl.ID
			s.Entities = append(s.Entities, obj)
		}
	}
	return s, nil
}
