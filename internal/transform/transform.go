// Package transform applies manipulator results and batch drags to entity
// slices, reconciling group-relative and absolute positions.
package transform

import (
	"fmt"
	"slices"

	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// Transform is a manipulator's final reading in world space.
type Transform struct {
	Position core.Vec3 `json:"position"`
	Rotation core.Vec3 `json:"rotation"`
	Scale    core.Vec3 `json:"scale"`
}

// ApplyTransform replaces position, rotation and scale of one entity. For a
// group member the world-space reading is stored as an offset from the
// parent's resolved position.
func ApplyTransform(entities []core.Entity, id string, t Transform) ([]core.Entity, error) {
	idx := entity.NewIndex(entities)
	target, ok := idx.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrReferenceNotFound, id)
	}

	var offset *core.Vec3
	if target.ParentID != "" {
		parent, ok := idx.Get(target.ParentID)
		if !ok {
			return nil, fmt.Errorf("%w: parent %s of %s", entity.ErrReferenceNotFound, target.ParentID, id)
		}
		origin, err := entity.WorldPosition(parent, idx)
		if err != nil {
			return nil, err
		}
		rel := t.Position.Sub(origin)
		offset = &rel
	}

	out := core.CloneEntities(entities)
	e := &out[idx.Position(id)]
	e.Position = t.Position
	e.Rotation = t.Rotation
	e.Scale = t.Scale
	if offset != nil {
		e.RelativePosition = offset
	}
	return out, nil
}

// ApplyDelta moves the selection by delta:
//   - members whose group is also selected are left alone, the group carries them;
//   - members whose group is not selected move their relative offset;
//   - everything else moves its absolute position.
//
// Unknown ids are ignored.
func ApplyDelta(entities []core.Entity, selected []string, delta core.Vec3) []core.Entity {
	out := core.CloneEntities(entities)
	if delta.IsZero() {
		return out
	}
	for i := range out {
		e := &out[i]
		if !slices.Contains(selected, e.ID) {
			continue
		}
		switch {
		case e.ParentID != "" && slices.Contains(selected, e.ParentID):
		case e.ParentID != "":
			var rel core.Vec3
			if e.RelativePosition != nil {
				rel = *e.RelativePosition
			}
			rel = rel.Add(delta)
			e.RelativePosition = &rel
		default:
			e.Position = e.Position.Add(delta)
		}
	}
	return out
}
