package entity

import (
	"slices"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// release detaches a member from its group, storing its resolved world
// position as the absolute position.
func release(e core.Entity, world core.Vec3) core.Entity {
	e.Position = world
	e.ParentID = ""
	e.RelativePosition = nil
	return e
}

// Delete removes the requested entities. Base maps and unknown ids are
// skipped. Members of a deleted group are released at their world position;
// a deleted member is pruned from its surviving group's children. The
// returned ids are the entities actually removed, in input order.
func Delete(ids []string, entities []core.Entity) ([]core.Entity, []string) {
	MustIntegrity(entities)
	idx := NewIndex(entities)
	doomed := make(map[string]bool, len(ids))
	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		e, ok := idx.Get(id)
		if !ok || e.BaseMap() || doomed[id] {
			continue
		}
		doomed[id] = true
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return core.CloneEntities(entities), removed
	}

	out := make([]core.Entity, 0, len(entities)-len(removed))
	for _, e := range entities {
		if doomed[e.ID] {
			continue
		}
		c := e.Clone()
		if c.ParentID != "" && doomed[c.ParentID] {
			world, err := WorldPosition(e, idx)
			if err != nil {
				world = e.Position
			}
			c = release(c, world)
		}
		if len(c.Children) > 0 {
			c.Children = slices.DeleteFunc(c.Children, func(id string) bool { return doomed[id] })
		}
		out = append(out, c)
	}
	return out, removed
}

// Duplicate clones the selected entities with fresh ids, shifted by offset,
// and appends them. Duplicating a group also duplicates its members under
// the new group. A member selected without its group is copied as a
// standalone entity at its world position. Path ends that were duplicated
// in the same call are remapped to the copies.
func Duplicate(ids []string, entities []core.Entity, offset core.Vec3) ([]core.Entity, []string) {
	MustIntegrity(entities)
	idx := NewIndex(entities)
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	out := core.CloneEntities(entities)
	mapping := make(map[string]string)
	created := make([]string, 0, len(ids))
	var copies []core.Entity

	for _, id := range ids {
		e, ok := idx.Get(id)
		if !ok || e.BaseMap() {
			continue
		}
		if _, done := mapping[id]; done {
			continue
		}
		if e.ParentID != "" && selected[e.ParentID] {
			if p, ok := idx.Get(e.ParentID); ok && p.Type.IsGroup() {
				continue
			}
		}

		c := e.Clone()
		c.ID = NewID()
		mapping[e.ID] = c.ID
		created = append(created, c.ID)

		switch {
		case e.Type.IsGroup():
			c.Position = e.Position.Add(offset)
			c.Children = make([]string, 0, len(e.Children))
			for _, childID := range e.Children {
				child, ok := idx.Get(childID)
				if !ok {
					continue
				}
				cc := child.Clone()
				cc.ID = NewID()
				cc.ParentID = c.ID
				mapping[child.ID] = cc.ID
				c.Children = append(c.Children, cc.ID)
				copies = append(copies, cc)
			}
		case e.ParentID != "":
			world, err := WorldPosition(e, idx)
			if err != nil {
				world = e.Position
			}
			c = release(c, world.Add(offset))
		default:
			c.Position = e.Position.Add(offset)
		}
		copies = append(copies, c)
	}

	for i := range copies {
		if to, ok := mapping[copies[i].SourceID]; ok {
			copies[i].SourceID = to
		}
		if to, ok := mapping[copies[i].TargetID]; ok {
			copies[i].TargetID = to
		}
	}
	return append(out, copies...), created
}
