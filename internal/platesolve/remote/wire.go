package remote

import (
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// Multipart form fields of POST /api/solve.
const (
	FieldImage        = "image"
	FieldFocalLength  = "focal_length" // mm
	FieldPixelSize    = "pixel_size"   // µm
	FieldBinning      = "binning"
	FieldWidth        = "width"
	FieldHeight       = "height"
	FieldSearchRadius = "search_radius" // degrees
	FieldRA           = "ra"            // degrees, J2000
	FieldDec          = "dec"           // degrees, J2000
	FieldDownsample   = "downsample"
	FieldMaxObjects   = "max_objects"
)

// Solution is the JSON body returned by the solve endpoint.
type Solution struct {
	Success     bool      `json:"success"`
	Ra          float64   `json:"ra"`           // degrees, J2000
	Dec         float64   `json:"dec"`          // degrees, J2000
	Orientation float64   `json:"orientation"`  // degrees from north
	Pixscale    float64   `json:"pixscale"`     // arcsec/px
	Flipped     bool      `json:"flipped"`
	Radius      float64   `json:"radius"`       // search radius used, degrees
	FieldWidth  float64   `json:"field_width"`  // arc-minutes
	FieldHeight float64   `json:"field_height"` // arc-minutes
	SolveTime   time.Time `json:"solve_time"`
	Error       string    `json:"error,omitempty"`
}

// NewSolution converts a result to its wire form. Field dimensions come from
// the request parameter.
func NewSolution(res platesolve.PlateSolveResult, p platesolve.PlateSolveParameter) Solution {
	sol := Solution{
		Success:   res.Success,
		Radius:    res.Radius,
		SolveTime: res.SolveTime,
	}
	if !res.Success {
		return sol
	}

	c := res.Coordinates.Transform(astro.J2000)
	sol.Ra = c.RA.Degrees()
	sol.Dec = c.Dec.Degrees()
	sol.Orientation = res.Orientation
	sol.Pixscale = res.Pixscale
	sol.Flipped = res.Flipped
	sol.FieldWidth = res.Pixscale * float64(p.ImageWidth) / 60
	sol.FieldHeight = res.Pixscale * float64(p.ImageHeight) / 60
	return sol
}

// Result converts the wire form back into a result.
func (s Solution) Result() platesolve.PlateSolveResult {
	if !s.Success {
		return platesolve.PlateSolveResult{Success: false, Radius: s.Radius, SolveTime: s.SolveTime}
	}
	return platesolve.PlateSolveResult{
		Success: true,
		Coordinates: astro.NewCoordinates(
			astro.AngleFromDegrees(s.Ra),
			astro.AngleFromDegrees(s.Dec),
			astro.J2000,
		),
		Orientation: s.Orientation,
		Flipped:     s.Flipped,
		Pixscale:    s.Pixscale,
		Radius:      s.Radius,
		SolveTime:   s.SolveTime,
	}
}
