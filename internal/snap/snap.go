// Package snap corrects raw pointer positions during freehand drawing by
// aligning them to the grid or to nearby vertices and edges.
package snap

import (
	"github.com/twinlayout/sceneedit/internal/geo"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// Kind identifies what a snapped point was aligned to.
type Kind uint8

const (
	KindNone Kind = iota
	KindGrid
	KindVertex
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindGrid:
		return "grid"
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	}
	return "unknown"
}

// Config holds the snapping parameters.
type Config struct {
	GridSize  float64
	Threshold float64
}

// DefaultConfig returns a 1 unit grid with a 0.5 unit proximity threshold.
func DefaultConfig() Config {
	return Config{GridSize: 1, Threshold: 0.5}
}

// Result is a corrected placement point. Snapped is only set when a vertex or
// edge beat the threshold; grid alignment alone does not count.
type Result struct {
	Point    core.Vec3
	Snapped  bool
	Kind     Kind
	SourceID string
}

// Engine evaluates snap requests. It holds no state besides its config.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, substituting defaults for non-positive values.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.GridSize <= 0 {
		cfg.GridSize = def.GridSize
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Snap corrects raw against the candidate entities. Snapping is active when
// exactly one of toggle and modifier is set. Candidates are scanned in slice
// order, vertices before edges, and the first strictly closer hit wins.
func (e *Engine) Snap(raw core.Vec2, toggle, modifier bool, candidates []core.Entity) Result {
	if toggle == modifier {
		return Result{Point: raw.At(0), Kind: KindNone}
	}

	best := e.cfg.Threshold
	res := Result{Point: geo.SnapToGrid(raw, e.cfg.GridSize).At(0), Kind: KindGrid}

	consider := func(p core.Vec2, kind Kind, id string) {
		if d := geo.GroundDistance(raw, p); d < best {
			best = d
			res = Result{Point: p.At(0), Snapped: true, Kind: kind, SourceID: id}
		}
	}

	for _, c := range candidates {
		if !eligible(c) {
			continue
		}
		anchor := c.Position.Ground()
		consider(anchor, KindVertex, c.ID)
		world := geo.LocalizePoints(c.Position, c.Points)
		for _, p := range world {
			consider(p, KindVertex, c.ID)
		}
		for i := 1; i < len(world); i++ {
			consider(geo.ClosestPointOnSegment(raw, world[i-1], world[i]), KindEdge, c.ID)
		}
	}
	return res
}

func eligible(c core.Entity) bool {
	return c.Visible && !c.BaseMap() && c.Type.Snappable()
}
