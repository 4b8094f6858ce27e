package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/twinlayout/sceneedit/pkg/core"
)

var (
	// ErrInvalidCoordinates is returned when the coordinates are invalid
	ErrInvalidCoordinates = errors.New("invalid coordinates provided")
	// ErrNoPoints is returned when a computation needs at least one point.
	ErrNoPoints = errors.New("no points")
)

// GroundDistance returns the planar Euclidean distance between a and b.
func GroundDistance(a, b core.Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}

// ClosestPointOnSegment projects p onto the segment a-b, clamped to its ends.
// A degenerate segment yields a.
func ClosestPointOnSegment(p, a, b core.Vec2) core.Vec2 {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Scale(t))
}

// RoundToGrid rounds v to the nearest multiple of cell. Non-positive cells use 1.
func RoundToGrid(v, cell float64) float64 {
	if cell <= 0 {
		cell = 1
	}
	return math.Round(v/cell) * cell
}

// SnapToGrid rounds both ground coordinates of p.
func SnapToGrid(p core.Vec2, cell float64) core.Vec2 {
	return core.Vec2{X: RoundToGrid(p.X, cell), Z: RoundToGrid(p.Z, cell)}
}

// Centroid returns the arithmetic mean of the points. It fails with
// ErrNoPoints when points is empty and ErrInvalidCoordinates when a value is
// not finite.
func Centroid(points []core.Vec2) (core.Vec2, error) {
	if len(points) == 0 {
		return core.Vec2{}, ErrNoPoints
	}
	pts := make([]geom.Point, len(points))
	for i, p := range points {
		pt, err := geom.XY{X: p.X, Y: p.Z}.AsPoint()
		if err != nil {
			return core.Vec2{}, fmt.Errorf("%w: point %d: %v", ErrInvalidCoordinates, i, err)
		}
		pts[i] = pt
	}
	xy, ok := geom.NewMultiPoint(pts).Centroid().XY()
	if !ok {
		return core.Vec2{}, ErrNoPoints
	}
	return core.Vec2{X: xy.X, Z: xy.Y}, nil
}

// LocalizePoints translates local offsets by the origin's ground position.
func LocalizePoints(origin core.Vec3, pts []core.Vec2) []core.Vec2 {
	base := origin.Ground()
	out := make([]core.Vec2, len(pts))
	for i, p := range pts {
		out[i] = base.Add(p)
	}
	return out
}

// PointZ converts a scene vector into an XYZ point for WKB storage.
// Scene Z (ground depth) maps to the point's Y; scene Y (elevation) to Z.
func PointZ(v core.Vec3) (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Z},
		Z:    v.Y,
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return pt, nil
}

// Vec3FromPoint is the inverse of PointZ. Empty points decode as the origin.
func Vec3FromPoint(p geom.Point) core.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}
	}
	return core.Vec3{X: c.X, Y: c.Z, Z: c.Y}
}

// GeoOrigin anchors a scene's local frame to a WGS84 fix.
type GeoOrigin struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
}

// LocalFromLonLat converts a WGS84 fix to local ground metres relative to the
// origin. East is +X and north is -Z. Web Mercator distances are corrected by
// the origin latitude's scale factor.
func LocalFromLonLat(origin GeoOrigin, longitude, latitude float64) core.Vec2 {
	f := wgs84.EPSG().Transform(4326, 3857)
	ox, oy, _ := f(origin.Longitude, origin.Latitude, 0)
	x, y, _ := f(longitude, latitude, 0)
	k := math.Cos(origin.Latitude * math.Pi / 180)
	return core.Vec2{X: (x - ox) * k, Z: -(y - oy) * k}
}
