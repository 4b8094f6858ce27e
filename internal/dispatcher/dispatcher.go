// Package dispatcher routes discrete editor commands such as ":GROUP:" to
// their handlers. Handlers run on the caller's goroutine unless registered
// with Buffered, in which case a single worker drains a bounded queue.
package dispatcher

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrClosed         = errors.New("dispatcher closed")
)

// Event is one editor command with its positional arguments.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// Arg returns the i-th argument, or "" when there are fewer.
func (e Event) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

type HandlerFunc func(Event) (any, error)

type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Queued is the result of dispatching to a buffered handler. Depth is the
// queue length right after the event was accepted.
type Queued struct {
	Command string
	Depth   int
}

// Option configures a route at registration.
type Option func(*route)

// Buffered hands events to a worker through a queue of the given capacity.
func Buffered(capacity int) Option {
	return func(r *route) { r.capacity = capacity }
}

// Blocking makes a full queue wait for room instead of dropping the event.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged logs every event and its outcome at debug level, failures at error.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

type route struct {
	command  string
	handle   HandlerFunc
	capacity int
	blocking bool
	logged   bool
	queue    chan Event
}

type Dispatcher struct {
	log  Logger
	inst *instruments

	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup
}

// New creates a dispatcher reporting to the global meter provider.
func New(log Logger) (*Dispatcher, error) {
	d := &Dispatcher{log: log, routes: make(map[string]*route)}
	inst, err := newInstruments(d.depths)
	if err != nil {
		return nil, err
	}
	d.inst = inst
	return d, nil
}

func normalize(command string) string {
	return strings.ToUpper(strings.TrimSpace(command))
}

// Register binds h to command, replacing any earlier binding. Commands are
// matched case-insensitively.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{command: normalize(command), handle: h}
	for _, opt := range opts {
		opt(r)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.routes[r.command]; ok && old.queue != nil && !d.closed {
		close(old.queue)
	}
	if r.capacity > 0 && !d.closed {
		r.queue = make(chan Event, r.capacity)
		d.workers.Add(1)
		go d.drain(r)
	}
	d.routes[r.command] = r
}

// Dispatch runs the handler for e, or queues e for a buffered route.
// A zero Timestamp is set to now.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	e.Command = normalize(e.Command)
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	d.mu.RLock()
	r, ok := d.routes[e.Command]
	if !ok {
		d.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if r.queue == nil {
		d.mu.RUnlock()
		return d.run(r, e)
	}
	// The read lock is held across the send so Close cannot close the
	// queue underneath it.
	defer d.mu.RUnlock()
	return d.enqueue(r, e)
}

func (d *Dispatcher) enqueue(r *route, e Event) (any, error) {
	if d.closed {
		return nil, fmt.Errorf("%w: %s", ErrClosed, r.command)
	}
	if r.blocking {
		r.queue <- e
		return Queued{Command: r.command, Depth: len(r.queue)}, nil
	}
	select {
	case r.queue <- e:
		return Queued{Command: r.command, Depth: len(r.queue)}, nil
	default:
		d.inst.drop(r.command)
		if r.logged {
			d.log.Error("event dropped", "command", r.command, "capacity", r.capacity)
		}
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, r.command)
	}
}

func (d *Dispatcher) drain(r *route) {
	defer d.workers.Done()
	for e := range r.queue {
		if _, err := d.run(r, e); err != nil && !r.logged {
			d.log.Error("buffered event failed", "command", r.command, "error", err)
		}
	}
}

func (d *Dispatcher) run(r *route, e Event) (any, error) {
	start := time.Now()
	if r.logged {
		d.log.Debug("handling event", "command", r.command, "args", len(e.Args))
	}

	res, err := r.handle(e)

	elapsed := time.Since(start)
	d.inst.record(r.command, elapsed, err)
	if r.logged {
		if err != nil {
			d.log.Error("event failed", "command", r.command, "duration", elapsed, "error", err)
		} else {
			d.log.Debug("event complete", "command", r.command, "duration", elapsed)
		}
	}
	return res, err
}

// depths reports the queue length of every buffered route.
func (d *Dispatcher) depths(observe func(command string, depth int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, r := range d.routes {
		if r.queue != nil {
			observe(cmd, len(r.queue))
		}
	}
}

// HasHandler reports whether command has a route.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[normalize(command)]
	return ok
}

// Commands lists the registered commands, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for cmd := range d.routes {
		out = append(out, cmd)
	}
	slices.Sort(out)
	return out
}

// Close rejects further buffered events and waits for the queued ones to
// be handled. Synchronous routes keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()
	d.workers.Wait()
}
