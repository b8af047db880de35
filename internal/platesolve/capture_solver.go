package platesolve

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CaptureSolver captures a frame and solves it, retrying up to the configured
// number of attempts.
type CaptureSolver struct {
	imager Imager
	solver *ImageSolver
	opts   options
}

// NewCaptureSolver creates a CaptureSolver.
func NewCaptureSolver(imager Imager, solver *ImageSolver, opts ...Option) *CaptureSolver {
	o := newOptions(opts)
	o.log = o.log.With("component", "capture-solver")
	return &CaptureSolver{imager: imager, solver: solver, opts: o}
}

// Solve runs capture/solve rounds until a solve succeeds or attempts run out.
// The last result is returned either way.
func (s *CaptureSolver) Solve(ctx context.Context, seq CaptureSequence, p CaptureSolverParameter, progress ProgressSink) (PlateSolveResult, error) {
	if err := p.Validate(); err != nil {
		return PlateSolveResult{}, err
	}

	ctx, span := s.opts.tracer.Start(ctx, "CaptureSolver.Solve")
	defer span.End()

	attempts := p.attempts()
	span.SetAttributes(attribute.Int("platesolve.attempts", attempts))

	var res PlateSolveResult
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		res, err = s.attempt(ctx, seq, p, attempt, progress)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return PlateSolveResult{}, err
		}
		if res.Success {
			break
		}
		if attempt == attempts {
			s.opts.log.Warn("solve failed after %d attempt(s)", attempts)
			break
		}

		s.opts.log.Info("attempt %d/%d failed, retrying in %s", attempt, attempts, p.ReattemptDelay)
		if err := s.opts.sleep(ctx, p.ReattemptDelay); err != nil {
			return PlateSolveResult{}, fmt.Errorf("reattempt delay: %w", err)
		}
	}

	span.SetAttributes(attribute.Bool("platesolve.success", res.Success))
	return res, nil
}

func (s *CaptureSolver) attempt(ctx context.Context, seq CaptureSequence, p CaptureSolverParameter, attempt int, progress ProgressSink) (PlateSolveResult, error) {
	report(progress, Event{Phase: PhaseCapturing, Attempt: attempt})
	s.opts.metrics.IncCaptureAttempts()

	img, stats, err := s.imager.CaptureAndPrepareImage(ctx, seq, progress)
	if err != nil {
		return PlateSolveResult{}, fmt.Errorf("capture (attempt %d): %w", attempt, err)
	}
	report(progress, Event{Phase: PhaseThumbnail, Attempt: attempt, Image: &img, Statistics: &stats})

	// No solve for a capture that finished after cancellation.
	if err := ctx.Err(); err != nil {
		return PlateSolveResult{}, fmt.Errorf("capture (attempt %d): %w", attempt, err)
	}

	res, err := s.solver.Solve(ctx, img, p.PlateSolveParameter, progress)
	if err != nil {
		return PlateSolveResult{}, err
	}
	report(progress, Event{Phase: PhaseSolved, Attempt: attempt, Result: &res})
	return res, nil
}
