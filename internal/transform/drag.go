package transform

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// DefaultThrottle paces preview frames at roughly 60 Hz.
const DefaultThrottle = 16 * time.Millisecond

// DragSession tracks one drag gesture. Previews are computed on the
// pre-gesture baseline and never change it; only Release produces a result
// to commit.
type DragSession struct {
	mu       sync.Mutex
	tick     time.Duration
	limiter  *rate.Limiter
	baseline []core.Entity
	selected []string
	latest   core.Vec3
	pending  bool
	active   bool
}

// NewDragSession creates an idle session emitting at most one preview per tick.
func NewDragSession(tick time.Duration) *DragSession {
	if tick <= 0 {
		tick = DefaultThrottle
	}
	return &DragSession{tick: tick}
}

// Begin starts a gesture over a copy of baseline.
func (d *DragSession) Begin(baseline []core.Entity, selected []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseline = core.CloneEntities(baseline)
	d.selected = append([]string(nil), selected...)
	d.latest = core.Vec3{}
	d.pending = false
	d.active = true
	d.limiter = rate.NewLimiter(rate.Every(d.tick), 1)
}

// Active reports whether a gesture is in progress.
func (d *DragSession) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Move records the accumulated delta since the gesture began. A preview is
// returned when the tick allows one; otherwise the value is held until the
// next Move or Flush.
func (d *DragSession) Move(delta core.Vec3, now time.Time) ([]core.Entity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil, false
	}
	d.latest = delta
	d.pending = true
	return d.emit(now)
}

// Flush emits the held value if the tick has elapsed since the last preview.
func (d *DragSession) Flush(now time.Time) ([]core.Entity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active || !d.pending {
		return nil, false
	}
	return d.emit(now)
}

func (d *DragSession) emit(now time.Time) ([]core.Entity, bool) {
	if !d.limiter.AllowN(now, 1) {
		return nil, false
	}
	d.pending = false
	return ApplyDelta(d.baseline, d.selected, d.latest), true
}

// Release ends the gesture with the latest delta. commit is false when the
// net delta is zero, in which case nothing should be recorded.
func (d *DragSession) Release() (result []core.Entity, commit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil, false
	}
	defer d.reset()
	if d.latest.IsZero() {
		return core.CloneEntities(d.baseline), false
	}
	return ApplyDelta(d.baseline, d.selected, d.latest), true
}

// Cancel ends the gesture, dropping any held value, and returns the baseline.
func (d *DragSession) Cancel() []core.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil
	}
	out := d.baseline
	d.reset()
	return out
}

func (d *DragSession) reset() {
	d.baseline = nil
	d.selected = nil
	d.latest = core.Vec3{}
	d.pending = false
	d.active = false
}
