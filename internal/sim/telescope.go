// Package sim provides a simulated mount, camera and solver that satisfy the
// platesolve collaborator contracts.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
)

// DefaultSyncResidual is the fraction of the pointing error left after a sync.
const DefaultSyncResidual = 0.1

// TelescopeConfig configures a simulated mount.
type TelescopeConfig struct {
	Epoch astro.Epoch

	// Start is where the mount physically points, in Epoch.
	Start astro.Coordinates

	// PointingErrorRA/Dec is the model error in degrees: the mount reports
	// its true position plus this offset.
	PointingErrorRA  float64
	PointingErrorDec float64

	// SyncResidual scales the pointing error on every accepted sync.
	SyncResidual float64

	SlewDuration time.Duration
	RejectSync   bool
}

// Telescope is a mount with a pointing model error that syncs reduce. It is
// safe for concurrent use.
type Telescope struct {
	mu sync.Mutex

	epoch        astro.Epoch
	truePos      astro.Coordinates
	errRA        float64
	errDec       float64
	residual     float64
	slewDuration time.Duration
	rejectSync   bool

	syncs int
	slews int
}

// NewTelescope creates a simulated mount.
func NewTelescope(cfg TelescopeConfig) *Telescope {
	residual := cfg.SyncResidual
	if residual < 0 || residual > 1 {
		residual = DefaultSyncResidual
	}
	return &Telescope{
		epoch:        cfg.Epoch,
		truePos:      cfg.Start.Transform(cfg.Epoch),
		errRA:        cfg.PointingErrorRA,
		errDec:       cfg.PointingErrorDec,
		residual:     residual,
		slewDuration: cfg.SlewDuration,
		rejectSync:   cfg.RejectSync,
	}
}

// EquatorialSystem implements platesolve.Telescope.
func (t *Telescope) EquatorialSystem() astro.Epoch {
	return t.epoch
}

// CurrentPosition implements platesolve.Telescope. It returns the position
// the mount believes it points at.
func (t *Telescope) CurrentPosition(ctx context.Context) (astro.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return astro.Coordinates{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reported(), nil
}

// TruePosition returns where the mount physically points, in its epoch.
func (t *Telescope) TruePosition() astro.Coordinates {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.truePos
}

// Sync implements platesolve.Telescope. An accepted sync shrinks the model
// error by the residual factor.
func (t *Telescope) Sync(ctx context.Context, c astro.Coordinates) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.syncs++
	if t.rejectSync {
		return false, nil
	}
	if c.Epoch != t.epoch {
		return false, fmt.Errorf("sync coordinates in %s, mount uses %s", c.Epoch, t.epoch)
	}
	t.errRA *= t.residual
	t.errDec *= t.residual
	return true, nil
}

// SlewToCoordinates implements platesolve.Telescope. The mount moves until
// its reported position equals c.
func (t *Telescope) SlewToCoordinates(ctx context.Context, c astro.Coordinates) (bool, error) {
	c = c.Transform(t.epoch)

	t.mu.Lock()
	t.slews++
	d := t.slewDuration
	t.mu.Unlock()

	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.truePos = astro.NewCoordinates(
		c.RA.Sub(astro.AngleFromDegrees(t.errRA)),
		c.Dec.Sub(astro.AngleFromDegrees(t.errDec)),
		t.epoch,
	)
	return true, nil
}

// Syncs returns the number of sync calls.
func (t *Telescope) Syncs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syncs
}

// Slews returns the number of slew calls.
func (t *Telescope) Slews() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slews
}

func (t *Telescope) reported() astro.Coordinates {
	return astro.NewCoordinates(
		t.truePos.RA.Add(astro.AngleFromDegrees(t.errRA)),
		t.truePos.Dec.Add(astro.AngleFromDegrees(t.errDec)),
		t.epoch,
	)
}
