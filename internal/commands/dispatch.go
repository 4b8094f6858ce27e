package commands

import (
	"context"
	"fmt"

	"github.com/twinlayout/sceneedit/internal/dispatcher"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/internal/transform"
	"github.com/twinlayout/sceneedit/internal/util"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// SaveWriteCommand drains captured snapshots into storage.
const SaveWriteCommand = ":SAVE:WRITE:"

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.d = d

	// History
	d.Register(":UNDO:", m.handleUndo, dispatcher.Logged())
	d.Register(":REDO:", m.handleRedo, dispatcher.Logged())

	// Structure edits
	d.Register(":GROUP:", m.handleGroup, dispatcher.Logged())
	d.Register(":UNGROUP:", m.handleUngroup, dispatcher.Logged())
	d.Register(":DELETE:", m.handleDelete, dispatcher.Logged())
	d.Register(":DUPLICATE:", m.handleDuplicate, dispatcher.Logged())
	d.Register(":SELECT:", m.handleSelect)

	// Floors
	d.Register(":FLOOR:", m.handleFloor, dispatcher.Logged())
	d.Register(":FLOOR:DELETE:", m.handleFloorDelete, dispatcher.Logged())

	// Drag gesture; moves are high-frequency and stay unlogged
	d.Register(":DRAG:BEGIN:", m.handleDragBegin, dispatcher.Logged())
	d.Register(":DRAG:MOVE:", m.handleDragMove)
	d.Register(":DRAG:END:", m.handleDragEnd, dispatcher.Logged())
	d.Register(":DRAG:CANCEL:", m.handleDragCancel, dispatcher.Logged())
	d.Register(":TRANSFORM:", m.handleTransform, dispatcher.Logged())

	// Drawing
	d.Register(":DRAW:TOOL:", m.handleDrawTool, dispatcher.Logged())
	d.Register(":DRAW:POINT:", m.handleDrawPoint)
	d.Register(":DRAW:COMMIT:", m.handleDrawCommit, dispatcher.Logged())
	d.Register(":DRAW:CANCEL:", m.handleDrawCancel, dispatcher.Logged())
	d.Register(":SNAP:", m.handleSnap, dispatcher.Logged())

	// Persistence - snapshot is taken synchronously, written off the editing path
	d.Register(":SAVE:", m.handleSave, dispatcher.Logged())
	d.Register(SaveWriteCommand, m.handleSaveWrite, dispatcher.Buffered(16), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) handleUndo(e dispatcher.Event) (any, error) {
	return m.deps.Session.Undo()
}

func (m *Manager) handleRedo(e dispatcher.Event) (any, error) {
	return m.deps.Session.Redo()
}

func (m *Manager) handleGroup(e dispatcher.Event) (any, error) {
	return m.deps.Session.Group(util.ParseIDs(e.Args)...)
}

func (m *Manager) handleUngroup(e dispatcher.Event) (any, error) {
	var id string
	if ids := util.ParseIDs(e.Args); len(ids) > 0 {
		id = ids[0]
	}
	return m.deps.Session.Ungroup(id)
}

func (m *Manager) handleDelete(e dispatcher.Event) (any, error) {
	return m.deps.Session.Delete(util.ParseIDs(e.Args)...)
}

func (m *Manager) handleDuplicate(e dispatcher.Event) (any, error) {
	return m.deps.Session.Duplicate(*m.deps.DuplicateOffset, util.ParseIDs(e.Args)...)
}

func (m *Manager) handleSelect(e dispatcher.Event) (any, error) {
	return m.deps.Session.Select(util.ParseIDs(e.Args)), nil
}

func (m *Manager) handleFloor(e dispatcher.Event) (any, error) {
	label := ""
	if len(e.Args) > 0 {
		label = util.TrimQuotes(e.Args[0])
	}
	m.deps.Session.SetActiveFloor(label)
	return label, nil
}

func (m *Manager) handleFloorDelete(e dispatcher.Event) (any, error) {
	label, err := arg(e, 0)
	if err != nil {
		return nil, err
	}
	return m.deps.Session.DeleteFloor(util.TrimQuotes(label))
}

func (m *Manager) handleDragBegin(e dispatcher.Event) (any, error) {
	return m.deps.Session.BeginDrag(util.ParseIDs(e.Args)...)
}

func (m *Manager) handleDragMove(e dispatcher.Event) (any, error) {
	raw, err := arg(e, 0)
	if err != nil {
		return nil, err
	}
	delta, err := util.ParseVec3(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse drag delta: %w", err)
	}
	return m.deps.Session.DragMove(delta, e.Timestamp)
}

func (m *Manager) handleDragEnd(e dispatcher.Event) (any, error) {
	return m.deps.Session.EndDrag()
}

func (m *Manager) handleDragCancel(e dispatcher.Event) (any, error) {
	return m.deps.Session.CancelDrag(), nil
}

// handleTransform expects id, position, rotation and scale.
func (m *Manager) handleTransform(e dispatcher.Event) (any, error) {
	if len(e.Args) < 4 {
		return nil, fmt.Errorf("%w: %s needs id, position, rotation and scale", ErrMissingArgument, e.Command)
	}
	var t transform.Transform
	var err error
	if t.Position, err = util.ParseVec3(e.Args[1]); err != nil {
		return nil, fmt.Errorf("failed to parse position: %w", err)
	}
	if t.Rotation, err = util.ParseVec3(e.Args[2]); err != nil {
		return nil, fmt.Errorf("failed to parse rotation: %w", err)
	}
	if t.Scale, err = util.ParseVec3(e.Args[3]); err != nil {
		return nil, fmt.Errorf("failed to parse scale: %w", err)
	}
	return m.deps.Session.TransformEnd(util.TrimQuotes(e.Args[0]), t)
}

func (m *Manager) handleDrawTool(e dispatcher.Event) (any, error) {
	raw, err := arg(e, 0)
	if err != nil {
		return nil, err
	}
	kind, err := core.ParseEntityType(util.TrimQuotes(raw))
	if err != nil {
		return nil, err
	}
	return kind, m.deps.Session.SelectTool(kind)
}

// DrawPointResult reports the corrected point and the tool state after it.
type DrawPointResult struct {
	Point   core.Vec3
	Snapped bool
	State   string
}

func (m *Manager) handleDrawPoint(e dispatcher.Event) (any, error) {
	raw, err := arg(e, 0)
	if err != nil {
		return nil, err
	}
	p, err := util.ParseVec2(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse draw point: %w", err)
	}
	res, state, err := m.deps.Session.DrawPoint(p)
	if err != nil {
		return nil, err
	}
	return DrawPointResult{Point: res.Point, Snapped: res.Snapped, State: state.String()}, nil
}

func (m *Manager) handleDrawCommit(e dispatcher.Event) (any, error) {
	return m.deps.Session.DrawCommit()
}

func (m *Manager) handleDrawCancel(e dispatcher.Event) (any, error) {
	return m.deps.Session.DrawCancel(), nil
}

// handleSnap sets the snap toggle and, when given, the modifier state.
func (m *Manager) handleSnap(e dispatcher.Event) (any, error) {
	raw, err := arg(e, 0)
	if err != nil {
		return nil, err
	}
	on, err := util.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	m.deps.Session.SetSnap(on)
	if len(e.Args) > 1 {
		held, err := util.ParseBool(e.Args[1])
		if err != nil {
			return nil, err
		}
		m.deps.Session.SetModifier(held)
	}
	return on, nil
}

// handleSave captures the live scene and queues it for the writer. A newer
// save of the same scene replaces a snapshot that has not been written yet.
func (m *Manager) handleSave(e dispatcher.Event) (any, error) {
	if m.deps.Backend == nil {
		return nil, storage.ErrNotInitialized
	}
	s := m.deps.Session.Scene()
	if s.ID == "" {
		return nil, fmt.Errorf("%w: no scene loaded", ErrMissingArgument)
	}
	if m.saves.Push(s.ID, s) {
		m.deps.LogManager.WriteLog(":SAVE:", fmt.Sprintf("Superseded pending save of %s", s.ID), "DEBUG")
	}
	if m.d == nil {
		return s.ID, m.writePending()
	}
	if _, err := m.d.Dispatch(dispatcher.Event{Command: SaveWriteCommand, Timestamp: e.Timestamp}); err != nil {
		return nil, err
	}
	return s.ID, nil
}

func (m *Manager) handleSaveWrite(e dispatcher.Event) (any, error) {
	return nil, m.writePending()
}

func (m *Manager) writePending() error {
	for {
		s, ok := m.saves.Pop()
		if !ok {
			return nil
		}
		if err := m.deps.Backend.SaveScene(s); err != nil {
			if _, newer := m.saves.Get(s.ID); !newer {
				m.saves.Push(s.ID, s)
			}
			m.deps.LogManager.WriteLog(SaveWriteCommand, fmt.Sprintf("Error saving scene %s: %v", s.ID, err), "ERROR")
			return fmt.Errorf("failed to save scene %s: %w", s.ID, err)
		}
		m.deps.LogManager.WriteLog(SaveWriteCommand, fmt.Sprintf("Saved scene %s with %d entities", s.ID, len(s.Entities)), "INFO")
		m.upload()
	}
}

// upload sends the backend's latest export to the scene service, when both
// exist.
func (m *Manager) upload() {
	up, ok := m.deps.Backend.(storage.Uploadable)
	if !ok || m.deps.Uploader == nil {
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return
	}
	meta := up.GetExportMetadata()
	if meta.Tag == "" {
		meta.Tag = m.deps.UploadTag
	}
	if err := m.deps.Uploader.Upload(context.Background(), path, meta); err != nil {
		m.deps.LogManager.WriteLog(SaveWriteCommand, fmt.Sprintf("Upload of %s failed: %v", path, err), "WARN")
		return
	}
	m.deps.LogManager.WriteLog(SaveWriteCommand, fmt.Sprintf("Uploaded %s", path), "INFO")
}
