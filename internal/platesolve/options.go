package platesolve

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/litescript/ls-platesolve/internal/logging"
	"github.com/litescript/ls-platesolve/internal/observability"
)

const tracerName = "github.com/litescript/ls-platesolve/internal/platesolve"

// Option configures ImageSolver, CaptureSolver and CenteringSolver.
type Option func(*options)

type options struct {
	log     *logging.Logger
	metrics *observability.SolverMetrics
	tracer  trace.Tracer
	sleep   func(ctx context.Context, d time.Duration) error
}

func newOptions(opts []Option) options {
	o := options{
		log:   logging.Discard(),
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records solve metrics into m.
func WithMetrics(m *observability.SolverMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithDelayFunc replaces the reattempt delay used by CaptureSolver.
func WithDelayFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
