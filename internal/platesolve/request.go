package platesolve

import (
	"context"

	"github.com/litescript/ls-platesolve/internal/astro"
)

// Image is a captured frame handed to a solver adapter.
type Image struct {
	Name   string // file name hint, e.g. "frame.fits"
	Format string // "fits", "png", "jpg", "tif"
	Data   []byte
	Width  int
	Height int
}

// ImageStatistics summarises a captured frame.
type ImageStatistics struct {
	StarCount int
	HFR       float64
	Median    float64
}

// Request selects the solve strategy. It is implemented only by
// TargetedRequest and BlindRequest.
type Request interface {
	// Parameter returns the parameter snapshot of the request.
	Parameter() PlateSolveParameter
	// Kind returns "targeted" or "blind".
	Kind() string

	isRequest()
}

// TargetedRequest searches around Hint.
type TargetedRequest struct {
	Params PlateSolveParameter
	Hint   astro.Coordinates
}

func (r TargetedRequest) Parameter() PlateSolveParameter { return r.Params }
func (TargetedRequest) Kind() string                     { return "targeted" }
func (TargetedRequest) isRequest()                       {}

// BlindRequest searches the whole sky. Its parameter never carries a hint.
type BlindRequest struct {
	Params PlateSolveParameter
}

func (r BlindRequest) Parameter() PlateSolveParameter { return r.Params }
func (BlindRequest) Kind() string                     { return "blind" }
func (BlindRequest) isRequest()                       {}

// NewRequest picks the targeted variant when p has a hint and the blind
// variant otherwise.
func NewRequest(p PlateSolveParameter) Request {
	if p.Coordinates != nil {
		return TargetedRequest{Params: p, Hint: *p.Coordinates}
	}
	return NewBlindRequest(p)
}

// NewBlindRequest builds a blind request. Any hint on p is dropped.
func NewBlindRequest(p PlateSolveParameter) BlindRequest {
	return BlindRequest{Params: p.WithoutHint()}
}

// Solver is implemented by solver adapters (local executable, remote API,
// simulator). A failed solve is reported as Success == false with a nil
// error; errors are reserved for launch, I/O and cancellation failures.
type Solver interface {
	Solve(ctx context.Context, img Image, req Request, progress ProgressSink) (PlateSolveResult, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, img Image, req Request, progress ProgressSink) (PlateSolveResult, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, img Image, req Request, progress ProgressSink) (PlateSolveResult, error) {
	return f(ctx, img, req, progress)
}
