// Package editor owns the live entity collection of one open scene and runs
// editing commands against it, committing each successful change to the
// undo log.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/twinlayout/sceneedit/internal/draw"
	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/internal/floor"
	"github.com/twinlayout/sceneedit/internal/history"
	"github.com/twinlayout/sceneedit/internal/scenectx"
	"github.com/twinlayout/sceneedit/internal/snap"
	"github.com/twinlayout/sceneedit/internal/transform"
	"github.com/twinlayout/sceneedit/pkg/core"
)

const instrumentationName = "github.com/twinlayout/sceneedit/internal/editor"

var (
	// ErrNoSelection is returned when a command needs selected entities.
	ErrNoSelection = errors.New("nothing selected")
	// ErrNoTool is returned when drawing without an active tool.
	ErrNoTool = errors.New("no drawing tool active")
	// ErrDragActive is returned when starting a drag, or running a command
	// that commits or moves the undo cursor, while a drag is in progress.
	ErrDragActive = errors.New("drag already in progress")
	// ErrNoDrag is returned when moving or ending a drag that was never begun.
	ErrNoDrag = errors.New("no drag in progress")
)

// Outcome is the user-facing result of a command.
type Outcome struct {
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}

// Commit describes a change of the live collection.
type Commit struct {
	SceneID  string
	Action   string
	Entities []core.Entity
	Cursor   int
	At       time.Time
}

// CommitListener receives every committed snapshot. Listeners run on the
// editing path and must hand off slow work.
type CommitListener interface {
	OnCommit(ctx context.Context, c Commit)
}

// CommitListenerFunc adapts a function to CommitListener.
type CommitListenerFunc func(ctx context.Context, c Commit)

func (f CommitListenerFunc) OnCommit(ctx context.Context, c Commit) { f(ctx, c) }

// Dependencies holds everything a Session needs.
type Dependencies struct {
	Logger          *slog.Logger
	Context         *scenectx.Context
	Snap            snap.Config
	HistoryCapacity int
	DragThrottle    time.Duration
	Meter           metric.Meter
}

// Session is the single owner of a scene's live entity collection.
type Session struct {
	mu sync.Mutex

	deps    Dependencies
	logger  *slog.Logger
	ctx     *scenectx.Context
	log     *history.Log
	snapper *snap.Engine
	drag    *transform.DragSession

	sceneID   string
	sceneName string
	floors    []core.Floor
	// floorLog holds the floor list for each snapshot in log, index for index.
	floorLog [][]core.Floor

	live      []core.Entity
	preview   []core.Entity
	selection []string
	active    string
	snapOn    bool
	modifier  bool
	tool      *draw.Tool

	listeners []CommitListener

	commits metric.Int64Counter
	undos   metric.Int64Counter
	redos   metric.Int64Counter
}

// New creates an empty session.
func New(deps Dependencies) (*Session, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Context == nil {
		deps.Context = scenectx.NewContext()
	}
	m := deps.Meter
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	s := &Session{
		deps:    deps,
		logger:  deps.Logger.With("component", "editor"),
		ctx:     deps.Context,
		log:     history.New(deps.HistoryCapacity),
		snapper: snap.NewEngine(deps.Snap),
		drag:    transform.NewDragSession(deps.DragThrottle),
		live:    []core.Entity{},
		snapOn:  true,
	}
	s.floorLog = [][]core.Floor{nil}

	var err error
	if s.commits, err = m.Int64Counter("editor.commits", metric.WithDescription("History commits")); err != nil {
		return nil, fmt.Errorf("creating commits counter: %w", err)
	}
	if s.undos, err = m.Int64Counter("editor.undo", metric.WithDescription("Undo steps taken")); err != nil {
		return nil, fmt.Errorf("creating undo counter: %w", err)
	}
	if s.redos, err = m.Int64Counter("editor.redo", metric.WithDescription("Redo steps taken")); err != nil {
		return nil, fmt.Errorf("creating redo counter: %w", err)
	}
	return s, nil
}

// AddListener registers l for every subsequent commit.
func (s *Session) AddListener(l CommitListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Load replaces the open scene and resets the undo log to its entities.
func (s *Session) Load(scene *core.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity.MustIntegrity(scene.Entities)
	s.sceneID = scene.ID
	s.sceneName = scene.Name
	s.floors = append([]core.Floor(nil), scene.Floors...)
	s.live = core.CloneEntities(scene.Entities)
	s.log.Reset(s.live)
	s.floorLog = [][]core.Floor{slices.Clone(s.floors)}
	s.selection = nil
	s.preview = nil
	s.drag.Cancel()
	if s.tool != nil {
		s.tool.Cancel()
	}
	s.active = ""
	if len(s.floors) > 0 {
		s.active = s.floors[0].ID
	}

	s.ctx.SetScene(scene.ID, scene.Name)
	s.ctx.SetFloor(s.active)
	s.logger.Info("scene loaded", "entities", len(s.live), "floors", len(s.floors))
}

// Scene returns a copy of the open scene with its live entities.
func (s *Session) Scene() *core.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &core.Scene{
		ID:        s.sceneID,
		Name:      s.sceneName,
		Floors:    append([]core.Floor(nil), s.floors...),
		Entities:  core.CloneEntities(s.live),
		UpdatedAt: time.Now().UTC(),
	}
}

// Entities returns a copy of the full live collection.
func (s *Session) Entities() []core.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneEntities(s.live)
}

// Visible returns what is shown on the active floor, including the current
// drag preview.
func (s *Session) Visible() []core.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.live
	if s.preview != nil {
		src = s.preview
	}
	return floor.Scope(src, s.active)
}

// Selection returns the selected ids.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selection)
}

// Select replaces the selection, dropping ids hidden on the active floor.
func (s *Session) Select(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = floor.Selectable(s.live, s.active, ids)
	return slices.Clone(s.selection)
}

// ActiveFloor returns the active floor label.
func (s *Session) ActiveFloor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveFloor switches floors. Hidden entities are kept; the selection is
// narrowed to what stays visible.
func (s *Session) SetActiveFloor(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = label
	s.selection = floor.Selectable(s.live, label, s.selection)
	s.ctx.SetFloor(label)
	s.logger.Debug("active floor changed", "floor", label)
}

// Levels returns the floor labels in use.
func (s *Session) Levels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return floor.Levels(s.live)
}

// SetSnap sets the global snap toggle.
func (s *Session) SetSnap(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapOn = on
}

// SetModifier records whether the snap-inverting modifier key is held.
func (s *Session) SetModifier(held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modifier = held
}

// CanUndo reports whether Undo would change anything.
func (s *Session) CanUndo() bool { return s.log.CanUndo() }

// CanRedo reports whether Redo would change anything.
func (s *Session) CanRedo() bool { return s.log.CanRedo() }

// HistoryLen returns the number of stored snapshots.
func (s *Session) HistoryLen() int { return s.log.Len() }

// commit stores next and the current floor list as the new snapshot.
// Callers hold mu.
func (s *Session) commit(action string, next []core.Entity) {
	entity.MustIntegrity(next)
	cur := s.log.Cursor()
	s.log.Commit(next)
	s.floorLog = append(s.floorLog[:cur+1], slices.Clone(s.floors))
	if over := len(s.floorLog) - s.log.Len(); over > 0 {
		s.floorLog = append([][]core.Floor(nil), s.floorLog[over:]...)
	}
	s.live = core.CloneEntities(next)
	s.commits.Add(context.Background(), 1, metric.WithAttributes(attribute.String("action", action)))
	s.logger.Info("committed", "action", action, "entities", len(s.live), "cursor", s.log.Cursor())
	s.notify(action)
}

func (s *Session) notify(action string) {
	if len(s.listeners) == 0 {
		return
	}
	c := Commit{
		SceneID:  s.sceneID,
		Action:   action,
		Entities: core.CloneEntities(s.live),
		Cursor:   s.log.Cursor(),
		At:       time.Now(),
	}
	for _, l := range s.listeners {
		l.OnCommit(context.Background(), c)
	}
}

// keepExisting drops selected ids no longer present in live.
func (s *Session) keepExisting() {
	idx := entity.NewIndex(s.live)
	s.selection = slices.DeleteFunc(s.selection, func(id string) bool { return !idx.Has(id) })
}

// restoreFloors resets the floor list to the snapshot at the log cursor.
func (s *Session) restoreFloors() {
	s.floors = slices.Clone(s.floorLog[s.log.Cursor()])
}

func (s *Session) fail(action string, err error) (Outcome, error) {
	s.logger.Warn("command rejected", "action", action, "error", err)
	return Outcome{Message: err.Error()}, err
}

// targets returns ids, or the selection when ids is empty.
func (s *Session) targets(ids []string) []string {
	if len(ids) > 0 {
		return ids
	}
	return slices.Clone(s.selection)
}
