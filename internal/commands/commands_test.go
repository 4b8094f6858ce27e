package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinlayout/sceneedit/internal/config"
	"github.com/twinlayout/sceneedit/internal/dispatcher"
	"github.com/twinlayout/sceneedit/internal/editor"
	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/internal/logging"
	"github.com/twinlayout/sceneedit/internal/snap"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/internal/storage/memory"
	"github.com/twinlayout/sceneedit/internal/util"
	"github.com/twinlayout/sceneedit/pkg/core"
)

func cube(id string, x, z float64, floorLevel string) core.Entity {
	return core.Entity{ID: id, Type: core.TypeCube, Position: core.Vec3{X: x, Z: z}, FloorLevel: floorLevel, Visible: true}
}

func newSession(t *testing.T) *editor.Session {
	t.Helper()
	s, err := editor.New(editor.Dependencies{
		Snap:            snap.DefaultConfig(),
		HistoryCapacity: 20,
		DragThrottle:    16 * time.Millisecond,
	})
	require.NoError(t, err)
	s.Load(&core.Scene{
		ID:     "scene-1",
		Name:   "Plant",
		Floors: []core.Floor{{ID: "1F"}, {ID: "2F"}},
		Entities: []core.Entity{
			cube("A", 0, 0, "1F"),
			cube("B", 4, 0, "1F"),
			cube("C", 0, 8, "2F"),
		},
	})
	return s
}

func setup(t *testing.T, deps Dependencies) (*dispatcher.Dispatcher, *Manager) {
	t.Helper()
	if deps.Session == nil {
		deps.Session = newSession(t)
	}
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	m := NewManager(deps)
	m.RegisterHandlers(d)
	t.Cleanup(d.Close)
	return d, m
}

func dispatch(t *testing.T, d *dispatcher.Dispatcher, cmd string, args ...string) any {
	t.Helper()
	res, err := d.Dispatch(dispatcher.Event{Command: cmd, Args: args})
	require.NoError(t, err, cmd)
	return res
}

func find(entities []core.Entity, id string) (core.Entity, bool) {
	return entity.NewIndex(entities).Get(id)
}

type uploadCall struct {
	path string
	meta core.UploadMetadata
}

type fakeUploader struct {
	mu    sync.Mutex
	calls []uploadCall
}

func (u *fakeUploader) Upload(_ context.Context, path string, meta core.UploadMetadata) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, uploadCall{path: path, meta: meta})
	return nil
}

type failingBackend struct{ memory.Backend }

func (*failingBackend) SaveScene(*core.Scene) error { return errors.New("disk full") }

func TestRegisterHandlers(t *testing.T) {
	d, _ := setup(t, Dependencies{})

	for _, cmd := range []string{
		":UNDO:", ":REDO:", ":GROUP:", ":UNGROUP:", ":DELETE:", ":DUPLICATE:",
		":SELECT:", ":FLOOR:", ":FLOOR:DELETE:", ":DRAG:BEGIN:", ":DRAG:MOVE:",
		":DRAG:END:", ":DRAG:CANCEL:", ":TRANSFORM:", ":DRAW:POINT:",
		":DRAW:COMMIT:", ":DRAW:CANCEL:", ":SNAP:", ":SAVE:",
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestGroupUndoRedo(t *testing.T) {
	s := newSession(t)
	d, _ := setup(t, Dependencies{Session: s})

	sel := dispatch(t, d, ":SELECT:", `["A","B"]`)
	assert.Equal(t, []string{"A", "B"}, sel)

	out := dispatch(t, d, ":GROUP:").(editor.Outcome)
	assert.True(t, out.Changed)
	require.Len(t, s.Entities(), 4)
	a, _ := find(s.Entities(), "A")
	assert.NotEmpty(t, a.ParentID)

	out = dispatch(t, d, ":UNDO:").(editor.Outcome)
	assert.True(t, out.Changed)
	assert.Len(t, s.Entities(), 3)

	out = dispatch(t, d, ":REDO:").(editor.Outcome)
	assert.True(t, out.Changed)
	assert.Len(t, s.Entities(), 4)

	a, _ = find(s.Entities(), "A")
	out = dispatch(t, d, ":UNGROUP:", a.ParentID).(editor.Outcome)
	assert.True(t, out.Changed)
	assert.Len(t, s.Entities(), 3)
}

func TestDeleteAndDuplicate(t *testing.T) {
	s := newSession(t)
	off := core.Vec3{X: 2}
	d, _ := setup(t, Dependencies{Session: s, DuplicateOffset: &off})

	dispatch(t, d, ":DUPLICATE:", "A")
	require.Len(t, s.Entities(), 4)
	copies := s.Selection()
	require.Len(t, copies, 1)
	c, ok := find(s.Entities(), copies[0])
	require.True(t, ok)
	assert.Equal(t, core.Vec3{X: 2}, c.Position)

	out := dispatch(t, d, ":DELETE:", "A", "B").(editor.Outcome)
	assert.True(t, out.Changed)
	assert.Len(t, s.Entities(), 2)
}

func TestDragGesture(t *testing.T) {
	s := newSession(t)
	d, _ := setup(t, Dependencies{Session: s})

	dispatch(t, d, ":DRAG:BEGIN:", "A")
	start := time.Now()
	_, err := d.Dispatch(dispatcher.Event{Command: ":DRAG:MOVE:", Args: []string{"[2,0,1]"}, Timestamp: start})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: ":DRAG:MOVE:", Args: []string{"[3,0,1]"}, Timestamp: start.Add(time.Millisecond)})
	require.NoError(t, err)

	out := dispatch(t, d, ":DRAG:END:").(editor.Outcome)
	assert.True(t, out.Changed)
	a, _ := find(s.Entities(), "A")
	assert.Equal(t, core.Vec3{X: 3, Z: 1}, a.Position)

	dispatch(t, d, ":DRAG:BEGIN:", "B")
	dispatch(t, d, ":DRAG:MOVE:", "[9,0,9]")
	dispatch(t, d, ":DRAG:CANCEL:")
	b, _ := find(s.Entities(), "B")
	assert.Equal(t, core.Vec3{X: 4}, b.Position)

	_, err = d.Dispatch(dispatcher.Event{Command: ":DRAG:MOVE:"})
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestTransform(t *testing.T) {
	s := newSession(t)
	d, _ := setup(t, Dependencies{Session: s})

	dispatch(t, d, ":TRANSFORM:", "A", "[1,2,3]", "[0,1.5,0]", "[2,2,2]")
	a, _ := find(s.Entities(), "A")
	assert.Equal(t, core.Vec3{X: 1, Y: 2, Z: 3}, a.Position)
	assert.Equal(t, core.Vec3{Y: 1.5}, a.Rotation)
	assert.Equal(t, core.Vec3{X: 2, Y: 2, Z: 2}, a.Scale)

	_, err := d.Dispatch(dispatcher.Event{Command: ":TRANSFORM:", Args: []string{"A"}})
	assert.ErrorIs(t, err, ErrMissingArgument)

	_, err = d.Dispatch(dispatcher.Event{Command: ":TRANSFORM:", Args: []string{"A", "[1,2]", "[0,0,0]", "[1,1,1]"}})
	assert.ErrorIs(t, err, util.ErrBadArgument)
}

func TestDrawWall(t *testing.T) {
	s := newSession(t)
	d, _ := setup(t, Dependencies{Session: s})

	dispatch(t, d, ":SNAP:", "false", "false")
	dispatch(t, d, ":DRAW:TOOL:", "wall")

	res := dispatch(t, d, ":DRAW:POINT:", "[10.3,10.3]").(DrawPointResult)
	assert.False(t, res.Snapped)
	assert.Equal(t, core.Vec3{X: 10.3, Z: 10.3}, res.Point)
	res = dispatch(t, d, ":DRAW:POINT:", "[14.3,10.3]").(DrawPointResult)
	assert.NotEqual(t, "idle", res.State)

	out := dispatch(t, d, ":DRAW:COMMIT:").(editor.Outcome)
	assert.True(t, out.Changed)

	entities := s.Entities()
	require.Len(t, entities, 4)
	wall := entities[3]
	assert.Equal(t, core.TypeWall, wall.Type)
	assert.Equal(t, "1F", wall.FloorLevel)

	_, err := d.Dispatch(dispatcher.Event{Command: ":DRAW:TOOL:", Args: []string{"teapot"}})
	assert.ErrorIs(t, err, core.ErrUnknownEntityType)

	dispatch(t, d, ":DRAW:CANCEL:")
}

func TestFloorCommands(t *testing.T) {
	s := newSession(t)
	d, _ := setup(t, Dependencies{Session: s})

	assert.Equal(t, "2F", dispatch(t, d, ":FLOOR:", "2F"))
	assert.Equal(t, "2F", s.ActiveFloor())
	ids := []string{}
	for _, e := range s.Visible() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"C"}, ids)

	out := dispatch(t, d, ":FLOOR:DELETE:", "2F").(editor.Outcome)
	assert.True(t, out.Changed)
	_, ok := find(s.Entities(), "C")
	assert.False(t, ok)
	assert.Equal(t, "", s.ActiveFloor())

	_, err := d.Dispatch(dispatcher.Event{Command: ":FLOOR:DELETE:"})
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestSave_WritesAndUploads(t *testing.T) {
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	up := &fakeUploader{}
	s := newSession(t)
	d, m := setup(t, Dependencies{Session: s, Backend: backend, Uploader: up, UploadTag: "nightly"})

	dispatch(t, d, ":DELETE:", "B")
	assert.Equal(t, "scene-1", dispatch(t, d, ":SAVE:"))
	d.Close()

	assert.Equal(t, 0, m.Pending())
	saved, err := backend.LoadScene("scene-1")
	require.NoError(t, err)
	assert.Len(t, saved.Entities, 2)

	up.mu.Lock()
	defer up.mu.Unlock()
	require.Len(t, up.calls, 1)
	assert.Equal(t, backend.GetExportedFilePath(), up.calls[0].path)
	assert.Equal(t, "scene-1", up.calls[0].meta.SceneID)
	assert.Equal(t, "nightly", up.calls[0].meta.Tag)
}

func TestSave_FailureKeepsSnapshot(t *testing.T) {
	m := NewManager(Dependencies{Session: newSession(t), Backend: &failingBackend{}})

	_, err := m.handleSave(dispatcher.Event{Command: ":SAVE:"})
	assert.Error(t, err)
	assert.Equal(t, 1, m.Pending())
}

func TestSave_NoBackend(t *testing.T) {
	m := NewManager(Dependencies{Session: newSession(t)})

	_, err := m.handleSave(dispatcher.Event{Command: ":SAVE:"})
	assert.ErrorIs(t, err, storage.ErrNotInitialized)
}
