// Package floor computes the per-floor view of a scene.
package floor

import (
	"slices"

	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// InScope reports whether e is shown on the active floor. Entities without a
// floor label are floor-agnostic and always shown.
func InScope(e core.Entity, active string) bool {
	return e.FloorLevel == "" || e.FloorLevel == active
}

// Scope returns the entities shown on the active floor, in collection order.
// The input is never modified.
func Scope(entities []core.Entity, active string) []core.Entity {
	out := make([]core.Entity, 0, len(entities))
	for _, e := range entities {
		if InScope(e, active) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Selectable drops ids that are unknown or hidden on the active floor.
func Selectable(entities []core.Entity, active string, ids []string) []string {
	idx := entity.NewIndex(entities)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if e, ok := idx.Get(id); ok && InScope(e, active) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// DeleteFloor removes every entity labelled with the floor. Base maps on the
// floor go too: the cascade removes the level itself. Survivors whose group
// was removed are released at their world position.
func DeleteFloor(entities []core.Entity, label string) ([]core.Entity, []string) {
	entity.MustIntegrity(entities)
	idx := entity.NewIndex(entities)
	doomed := make(map[string]bool)
	var removed []string
	for _, e := range entities {
		if label != "" && e.FloorLevel == label {
			doomed[e.ID] = true
			removed = append(removed, e.ID)
		}
	}

	out := make([]core.Entity, 0, len(entities)-len(removed))
	for _, e := range entities {
		if doomed[e.ID] {
			continue
		}
		c := e.Clone()
		if c.ParentID != "" && doomed[c.ParentID] {
			if pos, err := entity.WorldPosition(e, idx); err == nil {
				c.Position = pos
			}
			c.ParentID = ""
			c.RelativePosition = nil
		}
		if len(c.Children) > 0 {
			c.Children = slices.DeleteFunc(c.Children, func(id string) bool { return doomed[id] })
		}
		out = append(out, c)
	}
	return out, removed
}

// Levels returns the distinct floor labels in sorted order.
func Levels(entities []core.Entity) []string {
	var out []string
	for _, e := range entities {
		if e.FloorLevel != "" && !slices.Contains(out, e.FloorLevel) {
			out = append(out, e.FloorLevel)
		}
	}
	slices.Sort(out)
	return out
}

// Counts returns the number of entities per floor label. Floor-agnostic
// entities are counted under the empty label.
func Counts(entities []core.Entity) map[string]int {
	out := make(map[string]int)
	for _, e := range entities {
		out[e.FloorLevel]++
	}
	return out
}
