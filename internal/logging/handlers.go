package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns the attributes describing what is being edited
// right now. It is called once per record.
type ContextProvider func() []slog.Attr

// SceneHandler puts the editing context in front of every record's own
// attributes, so log lines always start with the scene and floor.
type SceneHandler struct {
	next   slog.Handler
	source ContextProvider
}

// NewSceneHandler wraps next. A nil source makes it a pass-through.
func NewSceneHandler(next slog.Handler, source ContextProvider) *SceneHandler {
	return &SceneHandler{next: next, source: source}
}

func (h *SceneHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SceneHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.source == nil {
		return h.next.Handle(ctx, r)
	}
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(h.source()...)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(a)
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SceneHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SceneHandler{next: h.next.WithAttrs(attrs), source: h.source}
}

func (h *SceneHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SceneHandler{next: h.next.WithGroup(name), source: h.source}
}

// Fanout hands every record to each of its sinks. A failing sink does not
// stop the others; their errors are joined.
type Fanout struct {
	sinks []slog.Handler
}

// NewFanout drops nil sinks.
func NewFanout(sinks ...slog.Handler) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (f *Fanout) each(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{sinks: make([]slog.Handler, len(f.sinks))}
	for i, s := range f.sinks {
		out.sinks[i] = fn(s)
	}
	return out
}
