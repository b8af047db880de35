// Package platesolve orchestrates plate solving: single image solves with
// blind failover, capture-and-retry, and the iterative centering loop that
// drives a telescope onto a target.
package platesolve

import (
	"math"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
)

// Default parameter values.
const (
	DefaultSearchRadius     = 30.0 // degrees
	DefaultDownSampleFactor = 0    // 0 lets the solver pick
	DefaultMaxObjects       = 500
	DefaultAttempts         = 1
	DefaultReattemptDelay   = 10 * time.Second
	DefaultThreshold        = 1.0 // arc-minutes
)

// PlateSolveParameter describes one solve. It is a value snapshot; methods
// never mutate the receiver.
type PlateSolveParameter struct {
	FocalLength float64 // mm
	PixelSize   float64 // µm, unbinned
	Binning     int     // 0 is treated as 1

	ImageWidth  int // px
	ImageHeight int // px

	SearchRadius float64 // degrees around the hint

	// Coordinates is the optional position hint. A nil hint selects a blind
	// solve.
	Coordinates *astro.Coordinates

	DownSampleFactor int
	MaxObjects       int

	// DisableBlindFailover stops a failed targeted solve from being retried
	// once without the hint. The zero value fails over.
	DisableBlindFailover bool
}

// DefaultPlateSolveParameter returns a parameter with defaults filled in. The
// optics still have to be set by the caller.
func DefaultPlateSolveParameter() PlateSolveParameter {
	return PlateSolveParameter{
		Binning:          1,
		SearchRadius:     DefaultSearchRadius,
		DownSampleFactor: DefaultDownSampleFactor,
		MaxObjects:       DefaultMaxObjects,
	}
}

func (p PlateSolveParameter) binning() int {
	if p.Binning < 1 {
		return 1
	}
	return p.Binning
}

// ArcSecPerPixel returns the binned image scale.
func (p PlateSolveParameter) ArcSecPerPixel() float64 {
	return astro.ArcsecPerPixel(p.PixelSize*float64(p.binning()), p.FocalLength)
}

// FieldOfView returns the field of view along the longest image side in
// degrees.
func (p PlateSolveParameter) FieldOfView() float64 {
	longest := p.ImageWidth
	if p.ImageHeight > longest {
		longest = p.ImageHeight
	}
	return astro.FieldOfView(p.ArcSecPerPixel(), longest)
}

// HasHint reports whether a position hint is present.
func (p PlateSolveParameter) HasHint() bool {
	return p.Coordinates != nil
}

// WithHint returns a copy of p carrying c as its hint.
func (p PlateSolveParameter) WithHint(c astro.Coordinates) PlateSolveParameter {
	p.Coordinates = &c
	return p
}

// WithoutHint returns a copy of p with the hint cleared.
func (p PlateSolveParameter) WithoutHint() PlateSolveParameter {
	p.Coordinates = nil
	return p
}

// Validate checks the optics. It is called before any I/O happens.
func (p PlateSolveParameter) Validate() error {
	if !positiveFinite(p.FocalLength) {
		return configError("FocalLength", "must be a finite value greater than zero")
	}
	if !positiveFinite(p.PixelSize) {
		return configError("PixelSize", "must be a finite value greater than zero")
	}
	if p.ImageWidth < 0 || p.ImageHeight < 0 {
		return configError("ImageWidth/ImageHeight", "must not be negative")
	}
	if math.IsNaN(p.SearchRadius) || math.IsInf(p.SearchRadius, 0) || p.SearchRadius < 0 {
		return configError("SearchRadius", "must be a finite value not below zero")
	}
	return nil
}

// CaptureSolverParameter adds the retry policy of a capture-and-solve run.
type CaptureSolverParameter struct {
	PlateSolveParameter

	// Attempts is the number of capture/solve rounds. Values below 1 run once.
	Attempts       int
	ReattemptDelay time.Duration
}

func (p CaptureSolverParameter) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Validate checks the embedded solve parameter and the retry policy.
func (p CaptureSolverParameter) Validate() error {
	if err := p.PlateSolveParameter.Validate(); err != nil {
		return err
	}
	if p.ReattemptDelay < 0 {
		return configError("ReattemptDelay", "must not be negative")
	}
	return nil
}

// CenterSolveParameter configures a centering run. The embedded Coordinates
// is the centering target and is required; it also serves as the solve hint.
type CenterSolveParameter struct {
	CaptureSolverParameter

	Threshold float64 // arc-minutes

	// NoSync skips the telescope sync and relies on slews alone.
	NoSync bool
}

// Validate checks the target, threshold and embedded parameters.
func (p CenterSolveParameter) Validate() error {
	if p.Coordinates == nil {
		return configError("Coordinates", "centering target is required")
	}
	if !positiveFinite(p.Threshold) {
		return configError("Threshold", "must be a finite value greater than zero")
	}
	return p.CaptureSolverParameter.Validate()
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
