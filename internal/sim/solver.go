package sim

import (
	"context"
	"sync"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// Solver reports the true pointing of a simulated mount. Targeted requests
// fail when the mount is outside the search radius of the hint.
type Solver struct {
	telescope   *Telescope
	orientation float64
	delay       time.Duration

	mu        sync.Mutex
	failFirst int
	calls     int
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithFailFirst makes the first n solves fail.
func WithFailFirst(n int) SolverOption {
	return func(s *Solver) {
		s.failFirst = n
	}
}

// WithOrientation sets the reported camera angle in degrees.
func WithOrientation(deg float64) SolverOption {
	return func(s *Solver) {
		s.orientation = deg
	}
}

// WithSolveDelay simulates solver run time.
func WithSolveDelay(d time.Duration) SolverOption {
	return func(s *Solver) {
		s.delay = d
	}
}

// NewSolver creates a solver bound to telescope.
func NewSolver(telescope *Telescope, opts ...SolverOption) *Solver {
	s := &Solver{telescope: telescope}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve implements platesolve.Solver.
func (s *Solver) Solve(ctx context.Context, _ platesolve.Image, req platesolve.Request, _ platesolve.ProgressSink) (platesolve.PlateSolveResult, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return platesolve.PlateSolveResult{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return platesolve.PlateSolveResult{}, err
	}

	s.mu.Lock()
	s.calls++
	failing := s.calls <= s.failFirst
	s.mu.Unlock()

	p := req.Parameter()
	now := time.Now()
	radius := p.SearchRadius
	if _, blind := req.(platesolve.BlindRequest); blind {
		radius = 180
	}
	if failing {
		return platesolve.PlateSolveResult{Success: false, Radius: radius, SolveTime: now}, nil
	}

	pos := s.telescope.TruePosition().TransformAt(astro.J2000, now)
	if r, ok := req.(platesolve.TargetedRequest); ok {
		if pos.Sub(r.Hint).Distance.Degrees() > p.SearchRadius {
			return platesolve.PlateSolveResult{Success: false, Radius: radius, SolveTime: now}, nil
		}
	}

	return platesolve.PlateSolveResult{
		Success:     true,
		Coordinates: pos,
		Orientation: s.orientation,
		Pixscale:    p.ArcSecPerPixel(),
		Radius:      radius,
		SolveTime:   now,
	}, nil
}

// Calls returns the number of solve calls.
func (s *Solver) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
