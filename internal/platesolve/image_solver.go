package platesolve

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/litescript/ls-platesolve/internal/observability"
)

// ImageSolver solves a single image. Requests with a hint go to the targeted
// adapter; requests without one go to the blind adapter. A failed targeted
// solve fails over to a blind solve at most once.
type ImageSolver struct {
	targeted Solver
	blind    Solver
	opts     options
}

// NewImageSolver creates an ImageSolver. A nil blind adapter reuses targeted
// for blind requests.
func NewImageSolver(targeted, blind Solver, opts ...Option) *ImageSolver {
	if blind == nil {
		blind = targeted
	}
	o := newOptions(opts)
	o.log = o.log.With("component", "image-solver")
	return &ImageSolver{targeted: targeted, blind: blind, opts: o}
}

// Solve validates p and solves img.
func (s *ImageSolver) Solve(ctx context.Context, img Image, p PlateSolveParameter, progress ProgressSink) (PlateSolveResult, error) {
	if err := p.Validate(); err != nil {
		return PlateSolveResult{}, err
	}

	ctx, span := s.opts.tracer.Start(ctx, "ImageSolver.Solve")
	defer span.End()

	req := NewRequest(p)
	span.SetAttributes(
		attribute.String("platesolve.kind", req.Kind()),
		attribute.Float64("platesolve.arcsec_per_pixel", p.ArcSecPerPixel()),
	)

	res, err := s.dispatch(ctx, img, req, progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return PlateSolveResult{}, err
	}

	// Single failover hop: the blind branch below never re-enters here.
	if _, targeted := req.(TargetedRequest); targeted && !res.Success && !p.DisableBlindFailover {
		s.opts.log.Info("targeted solve failed, failing over to blind solve")
		s.opts.metrics.IncFailovers()
		span.AddEvent("blind-failover")

		res, err = s.dispatch(ctx, img, NewBlindRequest(p), progress)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return PlateSolveResult{}, err
		}
	}

	span.SetAttributes(attribute.Bool("platesolve.success", res.Success))
	return res, nil
}

func (s *ImageSolver) dispatch(ctx context.Context, img Image, req Request, progress ProgressSink) (PlateSolveResult, error) {
	var adapter Solver
	switch req.(type) {
	case TargetedRequest:
		adapter = s.targeted
	case BlindRequest:
		adapter = s.blind
	}

	if err := ctx.Err(); err != nil {
		return PlateSolveResult{}, fmt.Errorf("%s solve: %w", req.Kind(), err)
	}

	report(progress, Event{Phase: PhaseSolving, Message: req.Kind() + " solve"})
	s.opts.log.Debug("starting %s solve (scale=%.3f\"/px radius=%.1f°)",
		req.Kind(), req.Parameter().ArcSecPerPixel(), req.Parameter().SearchRadius)

	start := time.Now()
	res, err := adapter.Solve(ctx, img, req, progress)
	elapsed := time.Since(start)
	if err != nil {
		s.opts.metrics.ObserveSolve(req.Kind(), observability.OutcomeError, elapsed)
		return PlateSolveResult{}, fmt.Errorf("%s solve: %w", req.Kind(), err)
	}

	if res.SolveTime.IsZero() {
		res.SolveTime = time.Now()
	}
	if res.Success {
		s.opts.metrics.ObserveSolve(req.Kind(), observability.OutcomeSolved, elapsed)
		s.opts.log.Info("%s solve succeeded in %s: %s", req.Kind(), elapsed.Round(time.Millisecond), res)
	} else {
		s.opts.metrics.ObserveSolve(req.Kind(), observability.OutcomeFailed, elapsed)
		s.opts.log.Info("%s solve failed after %s", req.Kind(), elapsed.Round(time.Millisecond))
	}
	return res, nil
}
