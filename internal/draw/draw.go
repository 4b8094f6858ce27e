// Package draw implements the drawing tools as a small state machine fed with
// already snapped ground points.
package draw

import (
	"errors"
	"fmt"

	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/pkg/core"
)

var (
	// ErrNotReady is returned when committing before enough points were collected.
	ErrNotReady = errors.New("drawing is not ready to commit")
	// ErrNotDrawable is returned when selecting a tool for a type that cannot be drawn.
	ErrNotDrawable = errors.New("entity type cannot be drawn")
)

// State is the machine state.
type State uint8

const (
	Idle State = iota
	Collecting
	ReadyToCommit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case ReadyToCommit:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Tool collects points for one entity type.
type Tool struct {
	kind   core.EntityType
	need   int
	state  State
	points []core.Vec2
}

// NewTool returns an idle tool for kind. Only types with a point requirement
// can be drawn: wall, curved_wall, polygon_floor, path_line and waypoint.
func NewTool(kind core.EntityType) (*Tool, error) {
	if !Drawable(kind) {
		return nil, fmt.Errorf("%w: %s", ErrNotDrawable, kind)
	}
	return &Tool{kind: kind, need: entity.MinOutlinePoints(kind)}, nil
}

// Drawable reports whether a drawing tool exists for kind.
func Drawable(kind core.EntityType) bool {
	switch kind {
	case core.TypeWall, core.TypeCurvedWall, core.TypePolygonFloor, core.TypePathLine, core.TypeWaypoint:
		return true
	case core.TypeFloor, core.TypeColumn, core.TypeDoor, core.TypeCube, core.TypeCNC, core.TypeCustomModel,
		core.TypePoint, core.TypePath, core.TypeGroup, core.TypeMapImage:
		return false
	}
	panic(fmt.Sprintf("unhandled entity type %d", uint8(kind)))
}

func (t *Tool) Kind() core.EntityType { return t.kind }

func (t *Tool) State() State { return t.state }

// Points returns a copy of the collected points.
func (t *Tool) Points() []core.Vec2 {
	return append([]core.Vec2(nil), t.points...)
}

// AddPoint appends p. The tool becomes ready once the type's minimum is
// reached and keeps accepting points afterwards.
func (t *Tool) AddPoint(p core.Vec2) State {
	t.points = append(t.points, p)
	if len(t.points) >= t.need {
		t.state = ReadyToCommit
	} else {
		t.state = Collecting
	}
	return t.state
}

// Commit builds the entity on floor and returns the tool to Idle.
func (t *Tool) Commit(floor string) (core.Entity, error) {
	if t.state != ReadyToCommit {
		return core.Entity{}, fmt.Errorf("%w: %s has %d of %d points", ErrNotReady, t.kind, len(t.points), t.need)
	}
	e, err := entity.CreateOutline(t.kind, t.points, floor)
	if err != nil {
		return core.Entity{}, err
	}
	t.Cancel()
	return e, nil
}

// Cancel discards collected points.
func (t *Tool) Cancel() {
	t.points = nil
	t.state = Idle
}
