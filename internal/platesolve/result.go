package platesolve

import (
	"fmt"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
)

// PlateSolveResult is the outcome of one solve attempt. Results are returned
// by value; Separation is only set by the centering loop.
type PlateSolveResult struct {
	Success     bool
	Coordinates astro.Coordinates
	Orientation float64 // degrees, east of north
	Flipped     bool
	Pixscale    float64 // arcsec/px
	Radius      float64 // search radius used, degrees
	Separation  *astro.Separation
	SolveTime   time.Time
}

func (r PlateSolveResult) String() string {
	if !r.Success {
		return "solve failed"
	}
	s := fmt.Sprintf("%s rot=%.2f° scale=%.3f\"/px", r.Coordinates, r.Orientation, r.Pixscale)
	if r.Flipped {
		s += " flipped"
	}
	if r.Separation != nil {
		s += " sep=" + r.Separation.String()
	}
	return s
}

func (r PlateSolveResult) withSeparation(sep astro.Separation) PlateSolveResult {
	r.Separation = &sep
	return r
}
