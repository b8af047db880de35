// Package backend assembles solvers, the simulated mount and metrics from
// configuration. Both binaries share it.
package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/config"
	"github.com/litescript/ls-platesolve/internal/logging"
	"github.com/litescript/ls-platesolve/internal/observability"
	"github.com/litescript/ls-platesolve/internal/platesolve"
	"github.com/litescript/ls-platesolve/internal/platesolve/astap"
	"github.com/litescript/ls-platesolve/internal/platesolve/remote"
	"github.com/litescript/ls-platesolve/internal/sim"
)

// ErrNoTelescope is returned when the simulator solver is selected without a
// simulated mount to observe.
var ErrNoTelescope = errors.New("sim solver requires a simulated telescope")

// NewSolver returns the adapter selected by cfg.Solver.Type. telescope backs
// the simulator and may be nil for the other types.
func NewSolver(cfg *config.Config, telescope *sim.Telescope, log *logging.Logger) (platesolve.Solver, error) {
	switch cfg.Solver.Type {
	case config.SolverASTAP:
		a := cfg.Solver.ASTAP
		opts := []astap.Option{astap.WithLogger(log), astap.WithWorkDir(a.WorkDir)}
		if a.TimeoutSec > 0 {
			opts = append(opts, astap.WithTimeout(seconds(a.TimeoutSec)))
		}
		return astap.New(a.Executable, opts...), nil

	case config.SolverRemote:
		r := cfg.Solver.Remote
		var opts []remote.Option
		if r.TimeoutSec > 0 {
			opts = append(opts, remote.WithTimeout(seconds(r.TimeoutSec)))
		}
		return remote.New(r.URL, opts...), nil

	case config.SolverSim:
		if telescope == nil {
			return nil, ErrNoTelescope
		}
		return sim.NewSolver(telescope), nil

	default:
		return nil, fmt.Errorf("unknown solver type %q", cfg.Solver.Type)
	}
}

// NewTelescope builds the simulated mount. start is where the mount
// physically points.
func NewTelescope(cfg *config.Config, start astro.Coordinates) *sim.Telescope {
	t := cfg.Telescope
	return sim.NewTelescope(sim.TelescopeConfig{
		Epoch:            cfg.MountEpoch(),
		Start:            start,
		PointingErrorRA:  t.PointingErrorRADeg,
		PointingErrorDec: t.PointingErrorDecDeg,
		SyncResidual:     t.SyncResidual,
		SlewDuration:     seconds(t.SlewSec),
	})
}

// NewMetrics registers solver metrics on reg, or returns nil when metrics
// are disabled. A nil reg uses the default registry.
func NewMetrics(cfg *config.Config, reg prometheus.Registerer) (*observability.SolverMetrics, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	m, err := observability.NewSolverMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return m, nil
}

// Options returns the platesolve options shared by all solvers.
func Options(log *logging.Logger, metrics *observability.SolverMetrics) []platesolve.Option {
	return []platesolve.Option{
		platesolve.WithLogger(log),
		platesolve.WithMetrics(metrics),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
