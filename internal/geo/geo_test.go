package geo

import (
	"math"
	"testing"

	"github.com/twinlayout/sceneedit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroundDistance(t *testing.T) {
	assert.Equal(t, 5.0, GroundDistance(core.Vec2{X: 0, Z: 0}, core.Vec2{X: 3, Z: 4}))
	assert.Equal(t, 0.0, GroundDistance(core.Vec2{X: 1, Z: 1}, core.Vec2{X: 1, Z: 1}))
}

func TestClosestPointOnSegment(t *testing.T) {
	a := core.Vec2{X: 0, Z: 0}
	b := core.Vec2{X: 10, Z: 0}

	tests := []struct {
		name string
		p    core.Vec2
		want core.Vec2
	}{
		{"interior projection", core.Vec2{X: 4, Z: 3}, core.Vec2{X: 4, Z: 0}},
		{"clamped before start", core.Vec2{X: -5, Z: 1}, a},
		{"clamped past end", core.Vec2{X: 15, Z: -2}, b},
		{"on segment", core.Vec2{X: 7, Z: 0}, core.Vec2{X: 7, Z: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClosestPointOnSegment(tt.p, a, b))
		})
	}
}

func TestClosestPointOnSegment_Degenerate(t *testing.T) {
	a := core.Vec2{X: 2, Z: 2}
	assert.Equal(t, a, ClosestPointOnSegment(core.Vec2{X: 9, Z: 9}, a, a))
}

func TestRoundToGrid(t *testing.T) {
	assert.Equal(t, 2.0, RoundToGrid(1.6, 1))
	assert.Equal(t, 1.0, RoundToGrid(1.4, 1))
	assert.Equal(t, -2.0, RoundToGrid(-1.6, 1))
	assert.Equal(t, 1.5, RoundToGrid(1.4, 0.5))
	assert.Equal(t, 3.0, RoundToGrid(3.2, 0), "non-positive cell falls back to 1")
}

func TestCentroid(t *testing.T) {
	c, err := Centroid([]core.Vec2{{X: 0, Z: 0}, {X: 2, Z: 0}, {X: 2, Z: 2}, {X: 0, Z: 2}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.X, 1e-9)
	assert.InDelta(t, 1.0, c.Z, 1e-9)
}

func TestCentroid_Empty(t *testing.T) {
	_, err := Centroid(nil)
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestCentroid_NonFinite(t *testing.T) {
	_, err := Centroid([]core.Vec2{{X: 1, Z: 1}, {X: math.NaN(), Z: 0}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = Centroid([]core.Vec2{{X: math.Inf(1), Z: 0}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestLocalizePoints(t *testing.T) {
	got := LocalizePoints(core.Vec3{X: 10, Y: 3, Z: -4}, []core.Vec2{{X: 0, Z: 0}, {X: 1, Z: 2}})
	assert.Equal(t, []core.Vec2{{X: 10, Z: -4}, {X: 11, Z: -2}}, got)
}

func TestPointZ_RoundTrip(t *testing.T) {
	v := core.Vec3{X: 1.5, Y: 2.25, Z: -7}
	pt, err := PointZ(v)
	require.NoError(t, err)
	assert.Equal(t, v, Vec3FromPoint(pt))
}

func TestPointZ_NonFinite(t *testing.T) {
	_, err := PointZ(core.Vec3{X: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestLocalFromLonLat_Origin(t *testing.T) {
	origin := GeoOrigin{Longitude: 10, Latitude: 50}
	got := LocalFromLonLat(origin, 10, 50)
	assert.InDelta(t, 0, got.X, 1e-6)
	assert.InDelta(t, 0, got.Z, 1e-6)
}

func TestLocalFromLonLat_Axes(t *testing.T) {
	origin := GeoOrigin{Longitude: 10, Latitude: 50}

	east := LocalFromLonLat(origin, 10.001, 50)
	assert.Greater(t, east.X, 0.0)
	assert.InDelta(t, 0, east.Z, 1e-6)
	// one millidegree of longitude at 50N is roughly 71.5m
	assert.InDelta(t, 71.5, east.X, 1.0)

	north := LocalFromLonLat(origin, 10, 50.001)
	assert.Less(t, north.Z, 0.0)
	assert.InDelta(t, 111.2, math.Abs(north.Z), 1.0)
}
