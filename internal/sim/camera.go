package sim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// Camera produces synthetic FITS frames. Exposures are scaled by TimeScale;
// a zero TimeScale returns immediately.
type Camera struct {
	Width     int
	Height    int
	TimeScale float64

	mu       sync.Mutex
	captures int
}

// NewCamera creates a camera with the given sensor size.
func NewCamera(width, height int) *Camera {
	return &Camera{Width: width, Height: height}
}

// CaptureAndPrepareImage implements platesolve.Imager.
func (c *Camera) CaptureAndPrepareImage(ctx context.Context, seq platesolve.CaptureSequence, _ platesolve.ProgressSink) (platesolve.Image, platesolve.ImageStatistics, error) {
	if wait := time.Duration(float64(seq.ExposureTime) * c.TimeScale); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return platesolve.Image{}, platesolve.ImageStatistics{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return platesolve.Image{}, platesolve.ImageStatistics{}, err
	}

	c.mu.Lock()
	c.captures++
	n := c.captures
	c.mu.Unlock()

	img := platesolve.Image{
		Name:   fmt.Sprintf("sim_%04d.fits", n),
		Format: "fits",
		Data:   fitsHeader(c.Width, c.Height, seq),
		Width:  c.Width,
		Height: c.Height,
	}
	stats := platesolve.ImageStatistics{
		StarCount: 80 + (n*37)%90,
		HFR:       1.8 + float64(n%5)*0.1,
		Median:    1200,
	}
	return img, stats, nil
}

// Captures returns the number of frames taken.
func (c *Camera) Captures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures
}

// fitsHeader renders a minimal primary header; there is no pixel data.
func fitsHeader(width, height int, seq platesolve.CaptureSequence) []byte {
	cards := []string{
		"SIMPLE  =                    T",
		"BITPIX  =                   16",
		"NAXIS   =                    2",
		fmt.Sprintf("NAXIS1  = %20d", width),
		fmt.Sprintf("NAXIS2  = %20d", height),
		fmt.Sprintf("EXPTIME = %20.3f", seq.ExposureTime.Seconds()),
		fmt.Sprintf("GAIN    = %20d", seq.Gain),
		"END",
	}
	var b strings.Builder
	for _, card := range cards {
		b.WriteString(fmt.Sprintf("%-80s", card))
	}
	for b.Len()%2880 != 0 {
		b.WriteByte(' ')
	}
	return []byte(b.String())
}
