package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/northwalk/floormap/pkg/floorplan"
)

const instrumentationName = "github.com/northwalk/floormap/internal/engine"

type metrics struct {
	frames      metric.Int64Counter
	frameTime   metric.Float64Histogram
	stale       metric.Int64Counter
	activations metric.Int64Counter
}

// newMetrics uses the global OTel meter, a no-op unless a provider is set.
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)
	if out.frames, err = m.Int64Counter("engine.frames",
		metric.WithDescription("Frames drawn")); err != nil {
		return nil, fmt.Errorf("creating frame counter: %w", err)
	}
	if out.frameTime, err = m.Float64Histogram("engine.frame.duration",
		metric.WithDescription("Time spent in one Step"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating frame histogram: %w", err)
	}
	if out.stale, err = m.Int64Counter("engine.completions.stale",
		metric.WithDescription("Async completions discarded after a floor change")); err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}
	if out.activations, err = m.Int64Counter("engine.floor.activations",
		metric.WithDescription("Floor activations")); err != nil {
		return nil, fmt.Errorf("creating activation counter: %w", err)
	}
	return &out, nil
}

func (m *metrics) frame(d time.Duration) {
	ctx := context.Background()
	m.frames.Add(ctx, 1)
	m.frameTime.Record(ctx, float64(d.Microseconds())/1000)
}

func (m *metrics) staleCompletion(command string) {
	m.stale.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}

func (m *metrics) activation(floor floorplan.FloorID) {
	m.activations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("floor", string(floor))))
}
