package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/twinlayout/sceneedit/internal/dispatcher"

type instruments struct {
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram
}

// newInstruments creates the dispatcher metrics on the global meter. The
// queue gauge is fed by depths on every collection.
func newInstruments(depths func(observe func(string, int))) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	inst := &instruments{}
	var err error

	if inst.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled, by command and outcome")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if inst.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events rejected by a full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if inst.duration, err = m.Float64Histogram("dispatcher.event.duration",
		metric.WithDescription("Handler run time"), metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	gauge, err := m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered route"))
	if err != nil {
		return nil, fmt.Errorf("creating queue gauge: %w", err)
	}
	if _, err := m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		depths(func(cmd string, n int) {
			o.ObserveInt64(gauge, int64(n), metric.WithAttributes(attribute.String("command", cmd)))
		})
		return nil
	}, gauge); err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	return inst, nil
}

func (i *instruments) record(command string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ctx := context.Background()
	cmd := attribute.String("command", command)
	i.processed.Add(ctx, 1, metric.WithAttributes(cmd, attribute.String("outcome", outcome)))
	i.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(cmd))
}

func (i *instruments) drop(command string) {
	i.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}
