package entity

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/twinlayout/sceneedit/internal/geo"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// NewID returns a fresh opaque entity id.
func NewID() string {
	return uuid.NewString()
}

// base returns an entity with the defaults every factory shares.
func base(t core.EntityType, name string) core.Entity {
	return core.Entity{
		ID:      NewID(),
		Type:    t,
		Name:    name,
		Scale:   core.Vec3{X: 1, Y: 1, Z: 1},
		Opacity: 1,
		Visible: true,
	}
}

// CreatePoint builds a point marker at pos.
func CreatePoint(pos core.Vec3) core.Entity {
	e := base(core.TypePoint, "Point")
	e.Position = pos
	return e
}

// CreatePath builds a path entity linking two existing entities. Its
// position sits at the midpoint of the two ends.
func CreatePath(sourceID, targetID string, entities []core.Entity) (core.Entity, error) {
	idx := NewIndex(entities)
	src, ok := idx.Get(sourceID)
	if !ok {
		return core.Entity{}, fmt.Errorf("%w: path source %s", ErrReferenceNotFound, sourceID)
	}
	dst, ok := idx.Get(targetID)
	if !ok {
		return core.Entity{}, fmt.Errorf("%w: path target %s", ErrReferenceNotFound, targetID)
	}
	a, err := WorldPosition(src, idx)
	if err != nil {
		return core.Entity{}, err
	}
	b, err := WorldPosition(dst, idx)
	if err != nil {
		return core.Entity{}, err
	}

	e := base(core.TypePath, "Path")
	e.SourceID = sourceID
	e.TargetID = targetID
	e.Position = a.Add(b).Scale(0.5)
	e.FloorLevel = src.FloorLevel
	return e, nil
}

// CreateGroup builds a group entity over existing members. The group sits at
// the centroid of the members' absolute ground positions with Y fixed at 0.
// Members themselves are not rewritten; see the grouping package for that.
func CreateGroup(memberIDs []string, entities []core.Entity) (core.Entity, error) {
	return CreateGroupWithID(NewID(), memberIDs, entities)
}

// CreateGroupWithID is CreateGroup with a caller-chosen id. Repeated member
// ids count once.
func CreateGroupWithID(id string, memberIDs []string, entities []core.Entity) (core.Entity, error) {
	idx := NewIndex(entities)
	memberIDs = uniqueIDs(memberIDs)
	ground := make([]core.Vec2, 0, len(memberIDs))
	floor := ""
	for i, memberID := range memberIDs {
		if memberID == id {
			return core.Entity{}, fmt.Errorf("%w: %s cannot contain itself", ErrCyclicParent, memberID)
		}

		m, ok := idx.Get(memberID)
		if !ok {
			return core.Entity{}, fmt.Errorf("%w: group member %s", ErrReferenceNotFound, memberID)
		}
		if IsAncestor(id, memberID, idx) {
			return core.Entity{}, fmt.Errorf("%w: %s already descends from %s", ErrCyclicParent, memberID, id)
		}
		for _, other := range memberIDs {
			if other != memberID && IsAncestor(memberID, other, idx) {
				return core.Entity{}, fmt.Errorf("%w: %s is an ancestor of %s", ErrCyclicParent, memberID, other)
			}
		}
		pos, err := WorldPosition(m, idx)
		if err != nil {
			return core.Entity{}, err
		}
		ground = append(ground, pos.Ground())
		if i == 0 {
			floor = m.FloorLevel
		} else if floor != m.FloorLevel {
			floor = ""
		}
	}

	g := base(core.TypeGroup, "Group")
	g.ID = id
	g.FloorLevel = floor
	g.Children = append([]string{}, memberIDs...)
	c, err := geo.Centroid(ground)
	if err != nil {
		return core.Entity{}, fmt.Errorf("group centroid: %w", err)
	}
	g.Position = c.At(0)
	return g, nil
}

// MinOutlinePoints returns how many points a drawn entity of type t needs.
func MinOutlinePoints(t core.EntityType) int {
	switch t {
	case core.TypePolygonFloor:
		return 3
	case core.TypeWall, core.TypeCurvedWall, core.TypePathLine:
		return 2
	case core.TypeWaypoint, core.TypePoint:
		return 1
	case core.TypeFloor, core.TypeColumn, core.TypeDoor, core.TypeCube, core.TypeCNC,
		core.TypeCustomModel, core.TypePath, core.TypeGroup, core.TypeMapImage:
		return 0
	}
	panic(fmt.Sprintf("unhandled entity type %d", uint8(t)))
}

// CreateOutline builds a drawn entity from world ground points. The first
// point becomes the anchor position and outline types store every point as
// an offset from it.
func CreateOutline(t core.EntityType, pts []core.Vec2, floor string) (core.Entity, error) {
	need := MinOutlinePoints(t)
	if need == 0 {
		return core.Entity{}, fmt.Errorf("%w: %s is not a drawable type", ErrOutlineTooShort, t)
	}
	if len(pts) < need {
		return core.Entity{}, fmt.Errorf("%w: %s needs %d, got %d", ErrOutlineTooShort, t, need, len(pts))
	}

	e := base(t, t.String())
	e.FloorLevel = floor
	anchor := pts[0]
	e.Position = anchor.At(0)
	if t.HasOutline() {
		e.Points = make([]core.Vec2, len(pts))
		for i, p := range pts {
			e.Points[i] = p.Sub(anchor)
		}
	}
	return e, nil
}

// uniqueIDs drops repeats, keeping first occurrences in order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
