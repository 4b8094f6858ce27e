package editor

import (
	"time"

	"github.com/twinlayout/sceneedit/internal/draw"
	"github.com/twinlayout/sceneedit/internal/floor"
	"github.com/twinlayout/sceneedit/internal/snap"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// BeginDrag starts a drag over ids, or the selection.
func (s *Session) BeginDrag(ids ...string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("drag", ErrDragActive)
	}
	targets := floor.Selectable(s.live, s.active, s.targets(ids))
	if len(targets) == 0 {
		return s.fail("drag", ErrNoSelection)
	}
	s.drag.Begin(s.live, targets)
	s.logger.Debug("drag started", "entities", len(targets))
	return Outcome{Message: "dragging"}, nil
}

// DragMove feeds the accumulated delta. The returned flag reports whether a
// new preview frame was produced; Visible reflects it.
func (s *Session) DragMove(delta core.Vec3, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.drag.Active() {
		return false, ErrNoDrag
	}
	preview, ok := s.drag.Move(delta, now)
	if ok {
		s.preview = preview
	}
	return ok, nil
}

// DragFlush emits a held preview once the throttle tick has passed.
func (s *Session) DragFlush(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	preview, ok := s.drag.Flush(now)
	if ok {
		s.preview = preview
	}
	return ok
}

// EndDrag releases the gesture and commits its result. A drag that ends
// where it began records nothing.
func (s *Session) EndDrag() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.drag.Active() {
		return s.fail("drag", ErrNoDrag)
	}
	result, commit := s.drag.Release()
	s.preview = nil
	if !commit {
		return Outcome{Message: "no movement"}, nil
	}
	s.commit("drag", result)
	return Outcome{Changed: true, Message: "moved"}, nil
}

// CancelDrag abandons the gesture and drops its preview.
func (s *Session) CancelDrag() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drag.Cancel()
	s.preview = nil
	return Outcome{Message: "drag cancelled"}
}

// Snap corrects raw against the active floor's entities using the current
// toggle and modifier state.
func (s *Session) Snap(raw core.Vec2) snap.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapLocked(raw)
}

func (s *Session) snapLocked(raw core.Vec2) snap.Result {
	return s.snapper.Snap(raw, s.snapOn, s.modifier, snap.Candidates(s.live, s.active))
}

// SelectTool activates a drawing tool, discarding any unfinished drawing.
func (s *Session) SelectTool(kind core.EntityType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tool, err := draw.NewTool(kind)
	if err != nil {
		return err
	}
	s.tool = tool
	return nil
}

// DrawPoint snaps raw and adds it to the active tool.
func (s *Session) DrawPoint(raw core.Vec2) (snap.Result, draw.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tool == nil {
		return snap.Result{}, draw.Idle, ErrNoTool
	}
	res := s.snapLocked(raw)
	return res, s.tool.AddPoint(res.Point.Ground()), nil
}

// DrawCommit turns the collected points into an entity on the active floor.
func (s *Session) DrawCommit() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.Active() {
		return s.fail("draw", ErrDragActive)
	}
	if s.tool == nil {
		return s.fail("draw", ErrNoTool)
	}
	e, err := s.tool.Commit(s.active)
	if err != nil {
		return s.fail("draw", err)
	}
	next := append(core.CloneEntities(s.live), e)
	s.commit("draw", next)
	s.selection = []string{e.ID}
	return Outcome{Changed: true, Message: "created " + e.Type.String()}, nil
}

// DrawCancel discards the unfinished drawing.
func (s *Session) DrawCancel() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tool != nil {
		s.tool.Cancel()
	}
	return Outcome{Message: "drawing cancelled"}
}

// DrawState returns the active tool's state.
func (s *Session) DrawState() draw.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tool == nil {
		return draw.Idle
	}
	return s.tool.State()
}
