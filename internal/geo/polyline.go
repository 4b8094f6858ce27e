package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// ParsePolyline parses a JSON array of ground coordinates into points.
// Input format: "[[x1,z1],[x2,z2],...]"
func ParsePolyline(input string) ([]core.Vec2, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	polyline := make([]core.Vec2, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		polyline[i] = core.Vec2{X: coord[0], Z: coord[1]}
	}

	return polyline, nil
}

// ToLineString builds a LineString from local offsets. Outlines without two
// distinct points have no LineString form and yield an empty one.
func ToLineString(pts []core.Vec2) (geom.LineString, error) {
	if !hasTwoDistinct(pts) {
		return geom.LineString{}, nil
	}
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Z)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return ls, nil
}

func hasTwoDistinct(pts []core.Vec2) bool {
	for _, p := range pts[min(1, len(pts)):] {
		if p != pts[0] {
			return true
		}
	}
	return false
}

// FromLineString is the inverse of ToLineString.
func FromLineString(ls geom.LineString) []core.Vec2 {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	out := make([]core.Vec2, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		out[i] = core.Vec2{X: xy.X, Z: xy.Y}
	}
	return out
}
