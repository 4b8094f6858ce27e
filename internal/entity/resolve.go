package entity

import (
	"fmt"
	"slices"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// WorldPosition resolves the absolute position of e by walking its parent
// chain. A dangling parent yields ErrReferenceNotFound and a loop yields
// ErrCyclicParent.
func WorldPosition(e core.Entity, idx *Index) (core.Vec3, error) {
	pos := e.Position
	if e.ParentID == "" {
		return pos, nil
	}
	if e.RelativePosition != nil {
		pos = *e.RelativePosition
	}

	seen := map[string]bool{e.ID: true}
	parentID := e.ParentID
	for parentID != "" {
		if seen[parentID] {
			return core.Vec3{}, fmt.Errorf("%w: %s", ErrCyclicParent, e.ID)
		}
		seen[parentID] = true

		parent, ok := idx.Get(parentID)
		if !ok {
			return core.Vec3{}, fmt.Errorf("%w: parent %s of %s", ErrReferenceNotFound, parentID, e.ID)
		}
		if parent.ParentID == "" || parent.RelativePosition == nil {
			pos = pos.Add(parent.Position)
		} else {
			pos = pos.Add(*parent.RelativePosition)
		}
		parentID = parent.ParentID
	}
	return pos, nil
}

// IsAncestor reports whether candidate appears in the parent chain of id.
func IsAncestor(candidate, id string, idx *Index) bool {
	seen := map[string]bool{}
	cur, ok := idx.Get(id)
	for ok && cur.ParentID != "" && !seen[cur.ID] {
		if cur.ParentID == candidate {
			return true
		}
		seen[cur.ID] = true
		cur, ok = idx.Get(cur.ParentID)
	}
	return false
}

// CheckIntegrity verifies that membership is closed both ways: every entity
// with a parentId is listed in that group's children, every listed child
// exists and points back, and parent chains terminate.
func CheckIntegrity(entities []core.Entity) error {
	idx := NewIndex(entities)
	for _, e := range entities {
		if e.ParentID != "" {
			parent, ok := idx.Get(e.ParentID)
			if !ok {
				return fmt.Errorf("%w: %s has dangling parent %s", ErrIntegrity, e.ID, e.ParentID)
			}
			if !parent.Type.IsGroup() {
				return fmt.Errorf("%w: parent %s of %s is a %s", ErrIntegrity, parent.ID, e.ID, parent.Type)
			}
			if !slices.Contains(parent.Children, e.ID) {
				return fmt.Errorf("%w: %s missing from children of %s", ErrIntegrity, e.ID, parent.ID)
			}
			if e.RelativePosition == nil {
				return fmt.Errorf("%w: member %s has no relative position", ErrIntegrity, e.ID)
			}
			if _, err := WorldPosition(e, idx); err != nil {
				return fmt.Errorf("%w: %v", ErrIntegrity, err)
			}
		}
		for _, childID := range e.Children {
			child, ok := idx.Get(childID)
			if !ok {
				return fmt.Errorf("%w: group %s lists missing child %s", ErrIntegrity, e.ID, childID)
			}
			if child.ParentID != e.ID {
				return fmt.Errorf("%w: child %s of %s points at %q", ErrIntegrity, childID, e.ID, child.ParentID)
			}
		}
	}
	return nil
}

// Strict turns MustIntegrity into a panicking assertion. Development builds
// enable it from the "strict" config key.
var Strict = false

// MustIntegrity panics on corrupted membership when Strict is set, so that
// import corruption surfaces instead of being silently repaired.
func MustIntegrity(entities []core.Entity) {
	if !Strict {
		return
	}
	if err := CheckIntegrity(entities); err != nil {
		panic(err)
	}
}
