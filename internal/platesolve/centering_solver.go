package platesolve

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CenteringState is the state of a centering run.
type CenteringState int

const (
	StateSolving CenteringState = iota
	StateConverged
	StateSyncFailed // non-fatal; the loop continues with a slew
	StateGaveUp
)

func (s CenteringState) String() string {
	switch s {
	case StateSolving:
		return "solving"
	case StateConverged:
		return "converged"
	case StateSyncFailed:
		return "sync-failed"
	case StateGaveUp:
		return "gave-up"
	default:
		return "unknown"
	}
}

// CenteringSolver repeats capture, solve, sync and slew until the mount
// points within the threshold of the target.
//
// Center has no iteration limit. A mount that never reaches the threshold
// keeps the loop running until ctx is cancelled, so callers must pass a
// context with a deadline or a cancel path.
type CenteringSolver struct {
	capture   *CaptureSolver
	telescope Telescope
	opts      options
}

// NewCenteringSolver creates a CenteringSolver.
func NewCenteringSolver(capture *CaptureSolver, telescope Telescope, opts ...Option) *CenteringSolver {
	o := newOptions(opts)
	o.log = o.log.With("component", "centering")
	return &CenteringSolver{capture: capture, telescope: telescope, opts: o}
}

// Center drives the telescope onto p.Coordinates. It returns the converging
// result, or the failed result when a capture/solve run gives up.
func (s *CenteringSolver) Center(ctx context.Context, seq CaptureSequence, p CenterSolveParameter, progress ProgressSink) (PlateSolveResult, error) {
	if err := p.Validate(); err != nil {
		return PlateSolveResult{}, err
	}

	ctx, span := s.opts.tracer.Start(ctx, "CenteringSolver.Center")
	defer span.End()

	target := *p.Coordinates
	span.SetAttributes(
		attribute.String("platesolve.target", target.String()),
		attribute.Float64("platesolve.threshold_arcmin", p.Threshold),
	)

	res, iterations, err := s.run(ctx, seq, p, progress, span)
	s.opts.metrics.ObserveCentering(iterations)
	span.SetAttributes(attribute.Int("platesolve.iterations", iterations))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return PlateSolveResult{}, err
	}
	span.SetAttributes(attribute.Bool("platesolve.success", res.Success))
	return res, nil
}

func (s *CenteringSolver) run(ctx context.Context, seq CaptureSequence, p CenterSolveParameter, progress ProgressSink, span trace.Span) (PlateSolveResult, int, error) {
	target := *p.Coordinates
	state := StateSolving

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return PlateSolveResult{}, iteration - 1, fmt.Errorf("centering: %w", err)
		}

		res, err := s.capture.Solve(ctx, seq, p.CaptureSolverParameter, progress)
		if err != nil {
			return PlateSolveResult{}, iteration, err
		}
		if !res.Success {
			state = StateGaveUp
			s.opts.log.Warn("iteration %d: solve failed, giving up", iteration)
			report(progress, Event{Phase: PhaseSolved, Iteration: iteration, State: state, Result: &res})
			return res, iteration, nil
		}

		position, err := s.telescope.CurrentPosition(ctx)
		if err != nil {
			return PlateSolveResult{}, iteration, fmt.Errorf("read telescope position: %w", err)
		}

		mountEpoch := s.telescope.EquatorialSystem()
		solved := res.Coordinates.Transform(mountEpoch)
		sep := solved.Sub(position)
		res = res.withSeparation(sep)
		state = StateSolving

		report(progress, Event{Phase: PhaseSolved, Iteration: iteration, State: state, Result: &res, Separation: &sep})
		span.AddEvent("iteration", trace.WithAttributes(
			attribute.Int("iteration", iteration),
			attribute.Float64("separation_arcmin", sep.Distance.ArcMinutes()),
		))

		if sep.Distance.Abs().ArcMinutes() <= p.Threshold {
			state = StateConverged
			s.opts.log.Info("centered after %d iteration(s): separation %.2f' <= %.2f'",
				iteration, sep.Distance.ArcMinutes(), p.Threshold)
			report(progress, Event{Phase: PhaseCentered, Iteration: iteration, State: state, Result: &res, Separation: &sep})
			return res, iteration, nil
		}

		s.opts.log.Info("iteration %d: separation %.2f' exceeds %.2f'", iteration, sep.Distance.ArcMinutes(), p.Threshold)

		if !p.NoSync {
			report(progress, Event{Phase: PhaseSyncing, Iteration: iteration, State: state})
			ok, err := s.telescope.Sync(ctx, solved)
			switch {
			case err != nil:
				state = StateSyncFailed
				s.opts.metrics.IncSyncFailures()
				s.opts.log.Warn("sync to %s failed: %v", solved, err)
			case !ok:
				state = StateSyncFailed
				s.opts.metrics.IncSyncFailures()
				s.opts.log.Warn("telescope rejected sync to %s", solved)
			}
		}

		report(progress, Event{Phase: PhaseSlewing, Iteration: iteration, State: state})
		ok, err := s.telescope.SlewToCoordinates(ctx, target.Transform(mountEpoch))
		if err != nil {
			return PlateSolveResult{}, iteration, fmt.Errorf("slew to %s: %w", target, err)
		}
		if !ok {
			return PlateSolveResult{}, iteration, fmt.Errorf("slew to %s: %w", target, ErrSlewRejected)
		}
	}
}
