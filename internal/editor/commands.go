package editor

import (
	"context"
	"fmt"

	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/internal/floor"
	"github.com/twinlayout/sceneedit/internal/grouping"
	"github.com/twinlayout/sceneedit/internal/transform"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// Undo steps back one commit. At the oldest snapshot nothing changes.
func (s *Session) Undo() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("undo", ErrDragActive)
	}
	prev, ok := s.log.Undo()
	if !ok {
		return Outcome{Message: "nothing to undo"}, nil
	}
	s.live = prev
	s.restoreFloors()
	s.keepExisting()
	s.undos.Add(context.Background(), 1)
	s.logger.Info("undo", "cursor", s.log.Cursor())
	s.notify("undo")
	return Outcome{Changed: true, Message: "undone"}, nil
}

// Redo steps forward one commit. At the newest snapshot nothing changes.
func (s *Session) Redo() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("redo", ErrDragActive)
	}
	next, ok := s.log.Redo()
	if !ok {
		return Outcome{Message: "nothing to redo"}, nil
	}
	s.live = next
	s.restoreFloors()
	s.keepExisting()
	s.redos.Add(context.Background(), 1)
	s.logger.Info("redo", "cursor", s.log.Cursor())
	s.notify("redo")
	return Outcome{Changed: true, Message: "redone"}, nil
}

// Group groups ids, or the selection when none are given. The new group
// becomes the selection.
func (s *Session) Group(ids ...string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("group", ErrDragActive)
	}
	targets := floor.Selectable(s.live, s.active, s.targets(ids))
	res, err := grouping.Group(targets, s.live)
	if err != nil {
		return s.fail("group", err)
	}
	s.commit("group", res.Entities)
	s.selection = []string{res.GroupID}
	return Outcome{Changed: true, Message: fmt.Sprintf("grouped into %s", res.GroupID)}, nil
}

// Ungroup dissolves id, or the first selected group when id is empty. The
// released members become the selection.
func (s *Session) Ungroup(id string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("ungroup", ErrDragActive)
	}
	if id == "" {
		idx := entity.NewIndex(s.live)
		for _, sel := range s.selection {
			if e, ok := idx.Get(sel); ok && e.Type.IsGroup() {
				id = sel
				break
			}
		}
		if id == "" {
			return s.fail("ungroup", fmt.Errorf("%w: no group selected", ErrNoSelection))
		}
	}

	res, err := grouping.Ungroup(id, s.live)
	if err != nil {
		return s.fail("ungroup", err)
	}
	s.commit("ungroup", res.Entities)
	s.selection = res.Released
	return Outcome{Changed: true, Message: fmt.Sprintf("released %d entities", len(res.Released))}, nil
}

// Delete removes ids, or the selection. Base maps and ids hidden on the
// active floor are never removed.
func (s *Session) Delete(ids ...string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("delete", ErrDragActive)
	}
	targets := floor.Selectable(s.live, s.active, s.targets(ids))
	if len(targets) == 0 {
		return s.fail("delete", ErrNoSelection)
	}
	next, removed := entity.Delete(targets, s.live)
	if len(removed) == 0 {
		return Outcome{Message: "nothing deletable selected"}, nil
	}
	s.commit("delete", next)
	s.keepExisting()
	return Outcome{Changed: true, Message: fmt.Sprintf("deleted %d entities", len(removed))}, nil
}

// Duplicate copies ids, or the selection, shifted by offset. Ids hidden on
// the active floor are skipped. The copies become the selection.
func (s *Session) Duplicate(offset core.Vec3, ids ...string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("duplicate", ErrDragActive)
	}
	targets := floor.Selectable(s.live, s.active, s.targets(ids))
	if len(targets) == 0 {
		return s.fail("duplicate", ErrNoSelection)
	}
	next, created := entity.Duplicate(targets, s.live, offset)
	if len(created) == 0 {
		return Outcome{Message: "nothing duplicable selected"}, nil
	}
	s.commit("duplicate", next)
	s.selection = created
	return Outcome{Changed: true, Message: fmt.Sprintf("duplicated %d entities", len(created))}, nil
}

// TransformEnd applies a manipulator's final reading to one entity.
func (s *Session) TransformEnd(id string, t transform.Transform) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("transform", ErrDragActive)
	}
	next, err := transform.ApplyTransform(s.live, id, t)
	if err != nil {
		return s.fail("transform", err)
	}
	s.commit("transform", next)
	return Outcome{Changed: true, Message: "transformed"}, nil
}

// DeleteFloor removes every entity on label and the floor itself as one
// undoable step. If it was the active floor the view falls back to
// floor-agnostic entities only.
func (s *Session) DeleteFloor(label string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("delete_floor", ErrDragActive)
	}
	next, removed := floor.DeleteFloor(s.live, label)
	kept := make([]core.Floor, 0, len(s.floors))
	for _, f := range s.floors {
		if f.ID != label {
			kept = append(kept, f)
		}
	}
	if len(removed) == 0 && len(kept) == len(s.floors) {
		return Outcome{Message: fmt.Sprintf("floor %q not found", label)}, nil
	}
	s.floors = kept
	if s.active == label {
		s.active = ""
		s.ctx.SetFloor("")
	}
	s.commit("delete_floor", next)
	s.keepExisting()
	return Outcome{Changed: true, Message: fmt.Sprintf("deleted floor %q with %d entities", label, len(removed))}, nil
}
