package platesolve

import (
	"context"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
)

// CaptureSequence describes the exposure used for solve frames.
type CaptureSequence struct {
	ExposureTime time.Duration
	Gain         int
	Offset       int
	Binning      int
	Filter       string
}

// Imager captures a frame and prepares it for solving.
type Imager interface {
	CaptureAndPrepareImage(ctx context.Context, seq CaptureSequence, progress ProgressSink) (Image, ImageStatistics, error)
}

// Telescope is the mount as seen by the centering loop. Callers must not run
// two centering or capture calls against the same mount concurrently.
type Telescope interface {
	CurrentPosition(ctx context.Context) (astro.Coordinates, error)
	// EquatorialSystem is the epoch the mount reports and accepts.
	EquatorialSystem() astro.Epoch
	Sync(ctx context.Context, c astro.Coordinates) (bool, error)
	// SlewToCoordinates returns once the slew has finished.
	SlewToCoordinates(ctx context.Context, c astro.Coordinates) (bool, error)
}
