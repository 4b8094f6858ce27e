// Package grouping creates and dissolves groups using relative-offset
// bookkeeping. Both operations are pure: they return a new entity slice and
// leave the input untouched, including on error.
package grouping

import (
	"fmt"

	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// Result is the outcome of Group.
type Result struct {
	Entities []core.Entity
	GroupID  string
}

// UngroupResult is the outcome of Ungroup. Released holds the former
// members for reselection.
type UngroupResult struct {
	Entities []core.Entity
	Released []string
}

// Group gathers the selection under a new group entity. Selected groups are
// flattened into their members and removed; base maps are skipped.
func Group(selectedIDs []string, entities []core.Entity) (Result, error) {
	idx := entity.NewIndex(entities)

	members := make([]string, 0, len(selectedIDs))
	seen := make(map[string]bool, len(selectedIDs))
	absorbed := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	for _, id := range selectedIDs {
		e, ok := idx.Get(id)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", entity.ErrReferenceNotFound, id)
		}
		if e.BaseMap() {
			continue
		}
		if !e.Type.IsGroup() {
			add(id)
			continue
		}
		absorbed[id] = true
		for _, childID := range e.Children {
			child, ok := idx.Get(childID)
			if !ok {
				return Result{}, fmt.Errorf("%w: child %s of %s", entity.ErrReferenceNotFound, childID, id)
			}
			if !child.BaseMap() {
				add(childID)
			}
		}
	}
	if len(members) < 2 {
		return Result{}, fmt.Errorf("%w: resolved %d", entity.ErrInsufficientSelection, len(members))
	}

	world := make(map[string]core.Vec3, len(members))
	for _, id := range members {
		e, _ := idx.Get(id)
		pos, err := entity.WorldPosition(e, idx)
		if err != nil {
			return Result{}, err
		}
		world[id] = pos
	}

	// Members leaving a group that is not itself absorbed are pruned from it.
	pruned := make(map[string]map[string]bool)
	for _, id := range members {
		e, _ := idx.Get(id)
		if e.ParentID != "" && !absorbed[e.ParentID] {
			if pruned[e.ParentID] == nil {
				pruned[e.ParentID] = make(map[string]bool)
			}
			pruned[e.ParentID][id] = true
		}
	}

	g, err := entity.CreateGroupWithID(entity.NewID(), members, entities)
	if err != nil {
		return Result{}, err
	}

	out := make([]core.Entity, 0, len(entities)+1)
	for _, e := range entities {
		if absorbed[e.ID] {
			continue
		}
		c := e.Clone()
		if pos, ok := world[e.ID]; ok {
			offset := pos.Sub(g.Position)
			c.Position = pos
			c.ParentID = g.ID
			c.RelativePosition = &offset
		}
		if gone := pruned[e.ID]; gone != nil {
			kept := c.Children[:0]
			for _, childID := range c.Children {
				if !gone[childID] {
					kept = append(kept, childID)
				}
			}
			c.Children = kept
			if len(kept) == 0 {
				continue
			}
		}
		out = append(out, c)
	}
	out = append(out, g)

	entity.MustIntegrity(out)
	return Result{Entities: out, GroupID: g.ID}, nil
}

// Ungroup dissolves a group. Each member keeps its world position as its new
// absolute position; the group entity is removed.
func Ungroup(groupID string, entities []core.Entity) (UngroupResult, error) {
	idx := entity.NewIndex(entities)
	g, ok := idx.Get(groupID)
	if !ok {
		return UngroupResult{}, fmt.Errorf("%w: %s", entity.ErrReferenceNotFound, groupID)
	}
	if !g.Type.IsGroup() {
		return UngroupResult{}, fmt.Errorf("%w: %s is a %s", entity.ErrNotAGroup, groupID, g.Type)
	}

	world := make(map[string]core.Vec3, len(g.Children))
	released := make([]string, 0, len(g.Children))
	for _, childID := range g.Children {
		child, ok := idx.Get(childID)
		if !ok {
			return UngroupResult{}, fmt.Errorf("%w: child %s of %s", entity.ErrReferenceNotFound, childID, groupID)
		}
		pos, err := entity.WorldPosition(child, idx)
		if err != nil {
			return UngroupResult{}, err
		}
		world[childID] = pos
		released = append(released, childID)
	}

	out := make([]core.Entity, 0, len(entities)-1)
	for _, e := range entities {
		if e.ID == groupID {
			continue
		}
		c := e.Clone()
		if pos, ok := world[e.ID]; ok && c.ParentID == groupID {
			c.Position = pos
			c.ParentID = ""
			c.RelativePosition = nil
		}
		out = append(out, c)
	}

	entity.MustIntegrity(out)
	return UngroupResult{Entities: out, Released: released}, nil
}
