package platesolve

import (
	"context"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
)

func deg(v float64) astro.Angle { return astro.AngleFromDegrees(v) }

func j2000(raDeg, decDeg float64) astro.Coordinates {
	return astro.NewCoordinates(deg(raDeg), deg(decDeg), astro.J2000)
}

func testParameter() PlateSolveParameter {
	p := DefaultPlateSolveParameter()
	p.FocalLength = 750
	p.PixelSize = 3.8
	p.ImageWidth = 4656
	p.ImageHeight = 3520
	return p
}

func solvedAt(c astro.Coordinates) PlateSolveResult {
	return PlateSolveResult{Success: true, Coordinates: c, Pixscale: 1.045, SolveTime: time.Unix(0, 0)}
}

// fakeSolver returns results in order, repeating the last one.
type fakeSolver struct {
	results  []PlateSolveResult
	err      error
	requests []Request
}

func (f *fakeSolver) Solve(ctx context.Context, img Image, req Request, progress ProgressSink) (PlateSolveResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return PlateSolveResult{}, f.err
	}
	if len(f.results) == 0 {
		return PlateSolveResult{}, nil
	}
	i := len(f.requests) - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], nil
}

func (f *fakeSolver) calls() int { return len(f.requests) }

type fakeImager struct {
	calls     int
	err       error
	onCapture func()
}

func (f *fakeImager) CaptureAndPrepareImage(ctx context.Context, seq CaptureSequence, progress ProgressSink) (Image, ImageStatistics, error) {
	f.calls++
	if f.onCapture != nil {
		f.onCapture()
	}
	if f.err != nil {
		return Image{}, ImageStatistics{}, f.err
	}
	return Image{Name: "frame.fits", Format: "fits", Data: []byte{0}, Width: 4656, Height: 3520},
		ImageStatistics{StarCount: 120, HFR: 2.1}, nil
}

type fakeTelescope struct {
	position astro.Coordinates
	epoch    astro.Epoch

	syncOK  bool
	syncErr error
	slewOK  bool
	slewErr error
	onSlew  func(n int)

	syncs       []astro.Coordinates
	slewTargets []astro.Coordinates
}

func newFakeTelescope(position astro.Coordinates) *fakeTelescope {
	return &fakeTelescope{position: position, epoch: astro.J2000, syncOK: true, slewOK: true}
}

func (f *fakeTelescope) CurrentPosition(ctx context.Context) (astro.Coordinates, error) {
	return f.position, nil
}

func (f *fakeTelescope) EquatorialSystem() astro.Epoch { return f.epoch }

func (f *fakeTelescope) Sync(ctx context.Context, c astro.Coordinates) (bool, error) {
	f.syncs = append(f.syncs, c)
	return f.syncOK, f.syncErr
}

func (f *fakeTelescope) SlewToCoordinates(ctx context.Context, c astro.Coordinates) (bool, error) {
	f.slewTargets = append(f.slewTargets, c)
	if f.onSlew != nil {
		f.onSlew(len(f.slewTargets))
	}
	return f.slewOK, f.slewErr
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) Report(e Event) { r.events = append(r.events, e) }

func (r *eventRecorder) phases() []Phase {
	out := make([]Phase, len(r.events))
	for i, e := range r.events {
		out[i] = e.Phase
	}
	return out
}

func noDelay(counter *int) Option {
	return WithDelayFunc(func(ctx context.Context, d time.Duration) error {
		*counter++
		return ctx.Err()
	})
}
