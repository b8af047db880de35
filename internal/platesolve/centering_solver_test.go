package platesolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/observability"
)

func centerParameter(target astro.Coordinates) CenterSolveParameter {
	return CenterSolveParameter{
		CaptureSolverParameter: CaptureSolverParameter{
			PlateSolveParameter: testParameter().WithHint(target),
			Attempts:            1,
			ReattemptDelay:      time.Second,
		},
		Threshold: 1,
	}
}

func newCentering(adapter Solver, scope Telescope, opts ...Option) *CenteringSolver {
	image := NewImageSolver(adapter, nil, opts...)
	capture := NewCaptureSolver(&fakeImager{}, image, opts...)
	return NewCenteringSolver(capture, scope, opts...)
}

func TestCenteringSolver_ConvergesOnSecondIteration(t *testing.T) {
	target := j2000(150, 10)
	adapter := &fakeSolver{results: []PlateSolveResult{
		solvedAt(j2000(150, 11)),      // 60' off
		solvedAt(j2000(150, 10.005)), // 0.3' off
	}}
	scope := newFakeTelescope(target)

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewSolverMetrics(reg)
	if err != nil {
		t.Fatalf("NewSolverMetrics: %v", err)
	}

	rec := &eventRecorder{}
	res, err := newCentering(adapter, scope, WithMetrics(metrics)).Center(context.Background(), CaptureSequence{}, centerParameter(target), rec)
	if err != nil {
		t.Fatalf("Center: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if adapter.calls() != 2 {
		t.Errorf("iterations = %d, want 2", adapter.calls())
	}
	if len(scope.syncs) != 1 || len(scope.slewTargets) != 1 {
		t.Errorf("syncs=%d slews=%d, want 1/1", len(scope.syncs), len(scope.slewTargets))
	}
	if scope.syncs[0] != j2000(150, 11) {
		t.Errorf("synced to %v, want the solved position", scope.syncs[0])
	}
	if scope.slewTargets[0] != target {
		t.Errorf("slewed to %v, want target %v", scope.slewTargets[0], target)
	}
	if res.Separation == nil {
		t.Fatal("result has no separation")
	}
	if got := res.Separation.Distance.ArcMinutes(); got > 1 || got < 0.29 {
		t.Errorf("final separation = %.3f', want ~0.3'", got)
	}

	last := rec.events[len(rec.events)-1]
	if last.Phase != PhaseCentered || last.State != StateConverged || last.Iteration != 2 {
		t.Errorf("last event = %v/%v/%d, want centered/converged/2", last.Phase, last.State, last.Iteration)
	}
	if got := testutil.ToFloat64(metrics.CaptureAttempts); got != 2 {
		t.Errorf("capture attempts = %v, want 2", got)
	}
}

func TestCenteringSolver_TwoSyncSlewCycles(t *testing.T) {
	target := j2000(83.82, -5.39)
	adapter := &fakeSolver{results: []PlateSolveResult{
		solvedAt(j2000(84.5, -5.0)),
		solvedAt(j2000(83.9, -5.35)),
		solvedAt(j2000(83.82, -5.391)),
	}}
	scope := newFakeTelescope(target)

	res, err := newCentering(adapter, scope).Center(context.Background(), CaptureSequence{}, centerParameter(target), nil)
	if err != nil {
		t.Fatalf("Center: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if adapter.calls() != 3 {
		t.Errorf("iterations = %d, want 3", adapter.calls())
	}
	if len(scope.syncs) != 2 || len(scope.slewTargets) != 2 {
		t.Errorf("syncs=%d slews=%d, want 2/2", len(scope.syncs), len(scope.slewTargets))
	}
}

func TestCenteringSolver_GivesUpOnFailedSolve(t *testing.T) {
	target := j2000(10, 20)
	adapter := &fakeSolver{}
	scope := newFakeTelescope(target)
	rec := &eventRecorder{}

	res, err := newCentering(adapter, scope).Center(context.Background(), CaptureSequence{}, centerParameter(target), rec)
	if err != nil {
		t.Fatalf("Center: %v", err)
	}
	if res.Success {
		t.Error("expected failed result")
	}
	if len(scope.syncs) != 0 || len(scope.slewTargets) != 0 {
		t.Errorf("mount moved after a failed solve: syncs=%d slews=%d", len(scope.syncs), len(scope.slewTargets))
	}
	last := rec.events[len(rec.events)-1]
	if last.State != StateGaveUp {
		t.Errorf("last state = %v, want %v", last.State, StateGaveUp)
	}
}

func TestCenteringSolver_SyncFailureIsNotFatal(t *testing.T) {
	tests := []struct {
		name    string
		syncOK  bool
		syncErr error
	}{
		{"rejected", false, nil},
		{"error", true, errors.New("mount busy")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := j2000(200, 45)
			adapter := &fakeSolver{results: []PlateSolveResult{
				solvedAt(j2000(201, 45)),
				solvedAt(j2000(200, 45)),
			}}
			scope := newFakeTelescope(target)
			scope.syncOK = tc.syncOK
			scope.syncErr = tc.syncErr

			reg := prometheus.NewRegistry()
			metrics, _ := observability.NewSolverMetrics(reg)
			rec := &eventRecorder{}

			res, err := newCentering(adapter, scope, WithMetrics(metrics)).Center(context.Background(), CaptureSequence{}, centerParameter(target), rec)
			if err != nil {
				t.Fatalf("Center: %v", err)
			}
			if !res.Success {
				t.Fatal("expected success despite sync failure")
			}
			if len(scope.slewTargets) != 1 {
				t.Errorf("slews = %d, want 1", len(scope.slewTargets))
			}
			if got := testutil.ToFloat64(metrics.SyncFailuresTotal); got != 1 {
				t.Errorf("sync failures = %v, want 1", got)
			}

			sawSyncFailed := false
			for _, e := range rec.events {
				if e.Phase == PhaseSlewing && e.State == StateSyncFailed {
					sawSyncFailed = true
				}
			}
			if !sawSyncFailed {
				t.Error("no slewing event in sync-failed state")
			}
		})
	}
}

func TestCenteringSolver_NoSync(t *testing.T) {
	target := j2000(10, 10)
	adapter := &fakeSolver{results: []PlateSolveResult{
		solvedAt(j2000(11, 10)),
		solvedAt(j2000(10, 10)),
	}}
	scope := newFakeTelescope(target)

	p := centerParameter(target)
	p.NoSync = true
	if _, err := newCentering(adapter, scope).Center(context.Background(), CaptureSequence{}, p, nil); err != nil {
		t.Fatalf("Center: %v", err)
	}
	if len(scope.syncs) != 0 {
		t.Errorf("syncs = %d, want 0", len(scope.syncs))
	}
	if len(scope.slewTargets) != 1 {
		t.Errorf("slews = %d, want 1", len(scope.slewTargets))
	}
}

func TestCenteringSolver_SlewRejected(t *testing.T) {
	target := j2000(10, 10)
	adapter := &fakeSolver{results: []PlateSolveResult{solvedAt(j2000(12, 10))}}
	scope := newFakeTelescope(target)
	scope.slewOK = false

	_, err := newCentering(adapter, scope).Center(context.Background(), CaptureSequence{}, centerParameter(target), nil)
	if !errors.Is(err, ErrSlewRejected) {
		t.Fatalf("Center error = %v, want ErrSlewRejected", err)
	}
}

func TestCenteringSolver_CancellationBoundsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	target := j2000(10, 10)
	adapter := &fakeSolver{results: []PlateSolveResult{solvedAt(j2000(15, 10))}}
	scope := newFakeTelescope(target)
	scope.onSlew = func(n int) {
		if n == 4 {
			cancel()
		}
	}

	_, err := newCentering(adapter, scope).Center(ctx, CaptureSequence{}, centerParameter(target), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Center error = %v, want context.Canceled", err)
	}
	if adapter.calls() != 4 {
		t.Errorf("iterations = %d, want 4", adapter.calls())
	}
}

func TestCenteringSolver_InvalidParameter(t *testing.T) {
	target := j2000(10, 10)
	scope := newFakeTelescope(target)
	adapter := &fakeSolver{}

	p := centerParameter(target)
	p.Threshold = 0
	if _, err := newCentering(adapter, scope).Center(context.Background(), CaptureSequence{}, p, nil); !IsConfigurationError(err) {
		t.Fatalf("Center error = %v, want ConfigurationError", err)
	}
	if adapter.calls() != 0 {
		t.Errorf("solver called %d times", adapter.calls())
	}
}
