// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for the solve pipeline.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Solve outcomes used as the "outcome" label.
const (
	OutcomeSolved = "solved"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// SolverMetrics exposes plate-solving metrics. A nil *SolverMetrics is valid
// and records nothing.
type SolverMetrics struct {
	gatherer prometheus.Gatherer

	SolvesTotal         *prometheus.CounterVec
	SolveDuration       *prometheus.HistogramVec
	FailoversTotal      prometheus.Counter
	CaptureAttempts     prometheus.Counter
	CenteringIterations prometheus.Histogram
	SyncFailuresTotal   prometheus.Counter
}

// NewSolverMetrics registers solver metrics against the provided registerer.
// Registering twice against the same registry reuses the existing collectors.
func NewSolverMetrics(reg prometheus.Registerer) (*SolverMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	solves, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "platesolve_solves_total",
		Help: "Plate solve attempts by request kind and outcome.",
	}, []string{"kind", "outcome"}), "platesolve_solves_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "platesolve_solve_duration_seconds",
		Help:    "Duration of a single solver adapter invocation.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"kind"}), "platesolve_solve_duration_seconds")
	if err != nil {
		return nil, err
	}

	failovers, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "platesolve_blind_failovers_total",
		Help: "Targeted solves that failed over to a blind solve.",
	}), "platesolve_blind_failovers_total")
	if err != nil {
		return nil, err
	}

	captures, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "platesolve_capture_attempts_total",
		Help: "Images captured for solving.",
	}), "platesolve_capture_attempts_total")
	if err != nil {
		return nil, err
	}

	iterations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "platesolve_centering_iterations",
		Help:    "Outer-loop iterations used by a centering run.",
		Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
	}), "platesolve_centering_iterations")
	if err != nil {
		return nil, err
	}

	syncFailures, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "platesolve_sync_failures_total",
		Help: "Telescope syncs that were rejected or errored during centering.",
	}), "platesolve_sync_failures_total")
	if err != nil {
		return nil, err
	}

	return &SolverMetrics{
		gatherer:            gatherer,
		SolvesTotal:         solves,
		SolveDuration:       duration,
		FailoversTotal:      failovers,
		CaptureAttempts:     captures,
		CenteringIterations: iterations,
		SyncFailuresTotal:   syncFailures,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the metrics.
func (m *SolverMetrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// ObserveSolve records one adapter invocation.
func (m *SolverMetrics) ObserveSolve(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SolvesTotal.WithLabelValues(kind, outcome).Inc()
	m.SolveDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncFailovers increments the blind failover counter.
func (m *SolverMetrics) IncFailovers() {
	if m == nil {
		return
	}
	m.FailoversTotal.Inc()
}

// IncCaptureAttempts increments the capture counter.
func (m *SolverMetrics) IncCaptureAttempts() {
	if m == nil {
		return
	}
	m.CaptureAttempts.Inc()
}

// ObserveCentering records the iteration count of a finished centering run.
func (m *SolverMetrics) ObserveCentering(iterations int) {
	if m == nil {
		return
	}
	m.CenteringIterations.Observe(float64(iterations))
}

// IncSyncFailures increments the sync failure counter.
func (m *SolverMetrics) IncSyncFailures() {
	if m == nil {
		return
	}
	m.SyncFailuresTotal.Inc()
}

// register registers c, or returns the already-registered collector of the
// same type.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
