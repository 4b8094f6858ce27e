package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/internal/grouping"
	"github.com/twinlayout/sceneedit/pkg/core"
)

func cube(id string, x, y, z float64) core.Entity {
	return core.Entity{ID: id, Type: core.TypeCube, Position: core.Vec3{X: x, Y: y, Z: z}, Visible: true}
}

func world(t *testing.T, entities []core.Entity, id string) core.Vec3 {
	t.Helper()
	idx := entity.NewIndex(entities)
	e, ok := idx.Get(id)
	require.True(t, ok)
	pos, err := entity.WorldPosition(e, idx)
	require.NoError(t, err)
	return pos
}

// workedExample groups A(0,0,0) and B(2,0,0) and adds an unrelated C.
func workedExample(t *testing.T) ([]core.Entity, string) {
	t.Helper()
	res, err := grouping.Group([]string{"A", "B"}, []core.Entity{cube("A", 0, 0, 0), cube("B", 2, 0, 0), cube("C", 7, 0, 7)})
	require.NoError(t, err)
	return res.Entities, res.GroupID
}

func TestApplyTransform(t *testing.T) {
	entities := []core.Entity{cube("A", 0, 0, 0)}
	tr := Transform{
		Position: core.Vec3{X: 1, Y: 2, Z: 3},
		Rotation: core.Vec3{Y: 1.57},
		Scale:    core.Vec3{X: 2, Y: 2, Z: 2},
	}

	out, err := ApplyTransform(entities, "A", tr)
	require.NoError(t, err)
	assert.Equal(t, tr.Position, out[0].Position)
	assert.Equal(t, tr.Rotation, out[0].Rotation)
	assert.Equal(t, tr.Scale, out[0].Scale)
	assert.Equal(t, core.Vec3{}, entities[0].Position, "input untouched")
}

func TestApplyTransform_Member(t *testing.T) {
	entities, _ := workedExample(t)

	out, err := ApplyTransform(entities, "A", Transform{Position: core.Vec3{X: 1, Z: 5}, Scale: core.Vec3{X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)

	a := out[0]
	require.NotNil(t, a.RelativePosition)
	assert.InDelta(t, 0.0, a.RelativePosition.X, 1e-9)
	assert.InDelta(t, 5.0, a.RelativePosition.Z, 1e-9)
	w := world(t, out, "A")
	assert.InDelta(t, 1.0, w.X, 1e-9)
	assert.InDelta(t, 5.0, w.Z, 1e-9)
}

func TestApplyTransform_Missing(t *testing.T) {
	_, err := ApplyTransform([]core.Entity{cube("A", 0, 0, 0)}, "nope", Transform{})
	assert.ErrorIs(t, err, entity.ErrReferenceNotFound)
}

func TestApplyDelta_WorkedExample(t *testing.T) {
	entities, gid := workedExample(t)

	out := ApplyDelta(entities, []string{gid}, core.Vec3{X: 3})

	idx := entity.NewIndex(out)
	g, _ := idx.Get(gid)
	assert.InDelta(t, 4.0, g.Position.X, 1e-9)
	assert.InDelta(t, 3.0, world(t, out, "A").X, 1e-9)
	assert.InDelta(t, 5.0, world(t, out, "B").X, 1e-9)
}

func TestApplyDelta_BatchNonInterference(t *testing.T) {
	entities, gid := workedExample(t)
	delta := core.Vec3{X: 1, Z: -2}

	// Group, one of its members and an unrelated entity: the member must not
	// receive the delta twice.
	out := ApplyDelta(entities, []string{gid, "A", "C"}, delta)

	idx := entity.NewIndex(out)
	g, _ := idx.Get(gid)
	assert.InDelta(t, 2.0, g.Position.X, 1e-9)
	assert.InDelta(t, -2.0, g.Position.Z, 1e-9)

	a := world(t, out, "A")
	assert.InDelta(t, 1.0, a.X, 1e-9)
	assert.InDelta(t, -2.0, a.Z, 1e-9)

	c, _ := idx.Get("C")
	assert.Equal(t, core.Vec3{X: 8, Z: 5}, c.Position)
}

func TestApplyDelta_GroupLeavesNonMemberUntouched(t *testing.T) {
	entities, gid := workedExample(t)

	out := ApplyDelta(entities, []string{gid}, core.Vec3{X: 3})

	idx := entity.NewIndex(out)
	c, _ := idx.Get("C")
	assert.Equal(t, core.Vec3{X: 7, Z: 7}, c.Position)
}

func TestApplyDelta_MemberWithoutGroup(t *testing.T) {
	entities, gid := workedExample(t)

	out := ApplyDelta(entities, []string{"B"}, core.Vec3{Z: 1})

	idx := entity.NewIndex(out)
	g, _ := idx.Get(gid)
	assert.InDelta(t, 1.0, g.Position.X, 1e-9, "group stays put")
	b, _ := idx.Get("B")
	require.NotNil(t, b.RelativePosition)
	assert.InDelta(t, 1.0, b.RelativePosition.X, 1e-9)
	assert.InDelta(t, 1.0, b.RelativePosition.Z, 1e-9)
	assert.InDelta(t, 0.0, world(t, out, "A").Z, 1e-9)
}

func TestDragSession_Throttle(t *testing.T) {
	entities := []core.Entity{cube("A", 0, 0, 0)}
	d := NewDragSession(16 * time.Millisecond)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d.Begin(entities, []string{"A"})
	assert.True(t, d.Active())

	preview, ok := d.Move(core.Vec3{X: 1}, t0)
	require.True(t, ok, "leading edge emits immediately")
	assert.Equal(t, core.Vec3{X: 1}, preview[0].Position)

	_, ok = d.Move(core.Vec3{X: 2}, t0.Add(4*time.Millisecond))
	assert.False(t, ok)
	_, ok = d.Move(core.Vec3{X: 3}, t0.Add(8*time.Millisecond))
	assert.False(t, ok)

	_, ok = d.Flush(t0.Add(10 * time.Millisecond))
	assert.False(t, ok)

	preview, ok = d.Flush(t0.Add(20 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, core.Vec3{X: 3}, preview[0].Position, "latest value wins")

	_, ok = d.Flush(t0.Add(40 * time.Millisecond))
	assert.False(t, ok, "nothing pending")

	assert.Equal(t, core.Vec3{}, entities[0].Position, "baseline untouched by previews")
}

func TestDragSession_Release(t *testing.T) {
	entities, gid := workedExample(t)
	d := NewDragSession(0)
	t0 := time.Now()

	d.Begin(entities, []string{gid})
	d.Move(core.Vec3{X: 1}, t0)
	d.Move(core.Vec3{X: 3}, t0.Add(time.Millisecond))

	out, commit := d.Release()
	require.True(t, commit)
	assert.False(t, d.Active())
	assert.InDelta(t, 3.0, world(t, out, "A").X, 1e-9)
	assert.InDelta(t, 5.0, world(t, out, "B").X, 1e-9)
}

func TestDragSession_NoOpRelease(t *testing.T) {
	entities := []core.Entity{cube("A", 1, 0, 1)}
	d := NewDragSession(0)

	d.Begin(entities, []string{"A"})
	d.Move(core.Vec3{X: 2}, time.Now())
	d.Move(core.Vec3{}, time.Now())

	out, commit := d.Release()
	assert.False(t, commit)
	assert.Equal(t, entities, out)
}

func TestDragSession_Cancel(t *testing.T) {
	entities := []core.Entity{cube("A", 1, 0, 1)}
	d := NewDragSession(time.Second)
	t0 := time.Now()

	d.Begin(entities, []string{"A"})
	d.Move(core.Vec3{X: 2}, t0)
	d.Move(core.Vec3{X: 5}, t0.Add(time.Millisecond))

	out := d.Cancel()
	assert.Equal(t, entities, out)
	assert.False(t, d.Active())

	_, ok := d.Flush(t0.Add(2 * time.Second))
	assert.False(t, ok, "pending update discarded")
	_, commit := d.Release()
	assert.False(t, commit)
}

func TestDragSession_Inactive(t *testing.T) {
	d := NewDragSession(0)

	_, ok := d.Move(core.Vec3{X: 1}, time.Now())
	assert.False(t, ok)
	assert.Nil(t, d.Cancel())
}
