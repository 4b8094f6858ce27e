package snap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinlayout/sceneedit/pkg/core"
)

func marker(id string, x, z float64) core.Entity {
	return core.Entity{ID: id, Type: core.TypePoint, Position: core.Vec3{X: x, Z: z}, Visible: true}
}

func wall(id string, x, z float64, pts ...core.Vec2) core.Entity {
	return core.Entity{ID: id, Type: core.TypeWall, Position: core.Vec3{X: x, Z: z}, Points: pts, Visible: true}
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(Config{})
	assert.Equal(t, DefaultConfig(), e.Config())

	e = NewEngine(Config{GridSize: 0.25, Threshold: 2})
	assert.Equal(t, Config{GridSize: 0.25, Threshold: 2}, e.Config())
}

func TestSnap_FreeMode(t *testing.T) {
	e := NewEngine(DefaultConfig())
	raw := core.Vec2{X: 1.37, Z: -2.61}
	cands := []core.Entity{marker("m", 1.4, -2.6)}

	tests := []struct {
		name             string
		toggle, modifier bool
	}{
		{"toggle off", false, false},
		{"toggle on with modifier", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Snap(raw, tt.toggle, tt.modifier, cands)
			assert.Equal(t, raw.At(0), res.Point)
			assert.False(t, res.Snapped)
			assert.Equal(t, KindNone, res.Kind)
		})
	}
}

func TestSnap_ModifierInvertsToggle(t *testing.T) {
	e := NewEngine(DefaultConfig())

	res := e.Snap(core.Vec2{X: 1.2, Z: 0.9}, false, true, nil)
	assert.Equal(t, core.Vec3{X: 1, Z: 1}, res.Point)
	assert.Equal(t, KindGrid, res.Kind)
}

func TestSnap_GridFallback(t *testing.T) {
	tests := []struct {
		grid float64
		raw  core.Vec2
		want core.Vec3
	}{
		{1, core.Vec2{X: 2.4, Z: -0.6}, core.Vec3{X: 2, Z: -1}},
		{1, core.Vec2{X: 0.5, Z: 3.49}, core.Vec3{X: 1, Z: 3}},
		{0.5, core.Vec2{X: 1.3, Z: 1.1}, core.Vec3{X: 1.5, Z: 1}},
		{2, core.Vec2{X: 2.9, Z: -5.1}, core.Vec3{X: 2, Z: -6}},
	}
	for _, tt := range tests {
		e := NewEngine(Config{GridSize: tt.grid, Threshold: 0.5})
		res := e.Snap(tt.raw, true, false, nil)
		assert.Equal(t, tt.want, res.Point)
		assert.False(t, res.Snapped)
		assert.Equal(t, KindGrid, res.Kind)
	}
}

func TestSnap_ThresholdBoundary(t *testing.T) {
	e := NewEngine(DefaultConfig())
	raw := core.Vec2{X: 0.25, Z: 0}

	at := e.Snap(raw, true, false, []core.Entity{marker("m", 0.75, 0)})
	assert.False(t, at.Snapped, "distance equal to threshold must not snap")
	assert.Equal(t, core.Vec3{}, at.Point)

	inside := e.Snap(raw, true, false, []core.Entity{marker("m", 0.75-1e-6, 0)})
	assert.True(t, inside.Snapped)
	assert.Equal(t, KindVertex, inside.Kind)
	assert.Equal(t, "m", inside.SourceID)
	assert.InDelta(t, 0.75-1e-6, inside.Point.X, 1e-12)
}

func TestSnap_ClosestVertexWins(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cands := []core.Entity{marker("far", 10.4, 10), marker("near", 10.1, 10.05)}

	res := e.Snap(core.Vec2{X: 10.2, Z: 10}, true, false, cands)
	require.True(t, res.Snapped)
	assert.Equal(t, "near", res.SourceID)
	assert.Equal(t, core.Vec3{X: 10.1, Z: 10.05}, res.Point)
}

func TestSnap_TieFirstFound(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cands := []core.Entity{marker("left", 4.75, 3), marker("right", 5.25, 3)}

	res := e.Snap(core.Vec2{X: 5, Z: 3}, true, false, cands)
	assert.Equal(t, "left", res.SourceID)
}

func TestSnap_OutlineVertex(t *testing.T) {
	e := NewEngine(DefaultConfig())
	w := wall("w", 10, 10, core.Vec2{}, core.Vec2{X: 4}, core.Vec2{X: 4, Z: 4})

	res := e.Snap(core.Vec2{X: 13.8, Z: 14.1}, true, false, []core.Entity{w})
	require.True(t, res.Snapped)
	assert.Equal(t, KindVertex, res.Kind)
	assert.Equal(t, core.Vec3{X: 14, Z: 14}, res.Point)
}

func TestSnap_Edge(t *testing.T) {
	e := NewEngine(DefaultConfig())
	w := wall("w", 0, 0, core.Vec2{}, core.Vec2{X: 10})

	res := e.Snap(core.Vec2{X: 4.3, Z: 0.2}, true, false, []core.Entity{w})
	require.True(t, res.Snapped)
	assert.Equal(t, KindEdge, res.Kind)
	assert.InDelta(t, 4.3, res.Point.X, 1e-12)
	assert.InDelta(t, 0, res.Point.Z, 1e-12)
}

func TestSnap_VertexPreferredWhenCloser(t *testing.T) {
	e := NewEngine(DefaultConfig())
	w := wall("w", 0, 0, core.Vec2{}, core.Vec2{X: 10})

	// Vertex (10,0) is 0.1 away; the clamped edge point is the same vertex
	// and only ties, so the vertex hit is kept.
	res := e.Snap(core.Vec2{X: 10.1, Z: 0}, true, false, []core.Entity{w})
	require.True(t, res.Snapped)
	assert.Equal(t, KindVertex, res.Kind)
}

func TestSnap_SkipsHiddenAndBaseMaps(t *testing.T) {
	e := NewEngine(DefaultConfig())
	hidden := marker("hidden", 1, 1)
	hidden.Visible = false
	base := marker("base", 1, 1)
	base.IsBaseMap = true
	img := core.Entity{ID: "img", Type: core.TypeMapImage, Position: core.Vec3{X: 1, Z: 1}, Visible: true}

	res := e.Snap(core.Vec2{X: 1.1, Z: 1.1}, true, false, []core.Entity{hidden, base, img})
	assert.False(t, res.Snapped)
	assert.Equal(t, core.Vec3{X: 1, Z: 1}, res.Point)
}

func TestSnap_Deterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cands := []core.Entity{
		marker("a", 3.3, 3.1),
		wall("w", 2, 2, core.Vec2{}, core.Vec2{X: 2, Z: 2}),
		marker("b", 3.1, 3.3),
	}
	raw := core.Vec2{X: 3.2, Z: 3.2}

	first := e.Snap(raw, true, false, cands)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.Snap(raw, true, false, cands))
	}
}

func TestCandidates(t *testing.T) {
	g := core.Entity{ID: "G", Type: core.TypeGroup, Position: core.Vec3{X: 10}, Children: []string{"m"}, Visible: true}
	m := marker("m", 0, 0)
	m.ParentID = "G"
	m.RelativePosition = &core.Vec3{X: 1}
	other := marker("o", 0, 0)
	other.FloorLevel = "2F"
	hidden := marker("h", 0, 0)
	hidden.Visible = false
	base := core.Entity{ID: "map", Type: core.TypeMapImage, Visible: true}

	entities := []core.Entity{g, m, other, hidden, base}
	cands := Candidates(entities, "1F")

	require.Len(t, cands, 1)
	assert.Equal(t, "m", cands[0].ID)
	assert.Equal(t, core.Vec3{X: 11}, cands[0].Position)
	assert.Equal(t, "G", entities[1].ParentID, "input untouched")
}
