// Package config loads YAML configuration and turns it into per-call
// parameter snapshots.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/observability"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// Solver backends.
const (
	SolverASTAP  = "astap"
	SolverRemote = "remote"
	SolverSim    = "sim"
)

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ASTAPConfig configures the local command line solver.
type ASTAPConfig struct {
	Executable string  `yaml:"executable"`
	TimeoutSec float64 `yaml:"timeout_s"`
	WorkDir    string  `yaml:"work_dir"` // empty uses the OS temp dir
}

// RemoteConfig configures the HTTP solver.
type RemoteConfig struct {
	URL        string  `yaml:"url"`
	TimeoutSec float64 `yaml:"timeout_s"`
}

// SolverConfig selects and configures the solver backend.
type SolverConfig struct {
	Type          string       `yaml:"type"` // astap, remote or sim
	BlindFailover bool         `yaml:"blind_failover"`
	ASTAP         ASTAPConfig  `yaml:"astap"`
	Remote        RemoteConfig `yaml:"remote"`
}

// OpticsConfig describes the imaging train.
type OpticsConfig struct {
	FocalLengthMm float64 `yaml:"focal_length_mm"`
	PixelSizeUm   float64 `yaml:"pixel_size_um"`
	Binning       int     `yaml:"binning"`
	WidthPx       int     `yaml:"width_px"`
	HeightPx      int     `yaml:"height_px"`
}

// SolveConfig holds solve and retry settings.
type SolveConfig struct {
	SearchRadiusDeg   float64 `yaml:"search_radius_deg"`
	Downsample        int     `yaml:"downsample"`
	MaxObjects        int     `yaml:"max_objects"`
	Attempts          int     `yaml:"attempts"`
	ReattemptDelaySec float64 `yaml:"reattempt_delay_s"`
}

// CaptureConfig describes solve exposures.
type CaptureConfig struct {
	ExposureSec float64 `yaml:"exposure_s"`
	Gain        int     `yaml:"gain"`
	Offset      int     `yaml:"offset"`
	Filter      string  `yaml:"filter"`
}

// CenteringConfig holds centering loop settings.
type CenteringConfig struct {
	ThresholdArcmin float64 `yaml:"threshold_arcmin"`
	NoSync          bool    `yaml:"no_sync"`
	TimeoutSec      float64 `yaml:"timeout_s"` // bounds the otherwise unbounded loop; 0 disables
}

// ObserverConfig is the observing site.
type ObserverConfig struct {
	LatitudeDeg  float64 `yaml:"latitude_deg"`
	LongitudeDeg float64 `yaml:"longitude_deg"` // east positive
	ElevationM   float64 `yaml:"elevation_m"`
	DeltaUT1Sec  float64 `yaml:"delta_ut1_s"`
}

// TelescopeConfig configures the simulated mount.
type TelescopeConfig struct {
	Epoch               string  `yaml:"epoch"` // J2000 or JNOW
	PointingErrorRADeg  float64 `yaml:"pointing_error_ra_deg"`
	PointingErrorDecDeg float64 `yaml:"pointing_error_dec_deg"`
	SyncResidual        float64 `yaml:"sync_residual"`
	SlewSec             float64 `yaml:"slew_s"`
}

// ServerConfig configures platesolved.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HistoryConfig sizes the solve history.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// Config aggregates all application configuration.
type Config struct {
	Logging   LoggingConfig               `yaml:"logging"`
	Solver    SolverConfig                `yaml:"solver"`
	Optics    OpticsConfig                `yaml:"optics"`
	Solve     SolveConfig                 `yaml:"solve"`
	Capture   CaptureConfig               `yaml:"capture"`
	Centering CenteringConfig             `yaml:"centering"`
	Observer  ObserverConfig              `yaml:"observer"`
	Telescope TelescopeConfig             `yaml:"telescope"`
	Server    ServerConfig                `yaml:"server"`
	Metrics   MetricsConfig               `yaml:"metrics"`
	Tracing   observability.TracingConfig `yaml:"tracing"`
	History   HistoryConfig               `yaml:"history"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Solver: SolverConfig{
			Type:          SolverASTAP,
			BlindFailover: true,
			ASTAP:         ASTAPConfig{Executable: "astap", TimeoutSec: 120},
			Remote:        RemoteConfig{URL: "http://localhost:8080", TimeoutSec: 180},
		},
		Optics: OpticsConfig{Binning: 1},
		Solve: SolveConfig{
			SearchRadiusDeg:   platesolve.DefaultSearchRadius,
			MaxObjects:        platesolve.DefaultMaxObjects,
			Attempts:          platesolve.DefaultAttempts,
			ReattemptDelaySec: platesolve.DefaultReattemptDelay.Seconds(),
		},
		Capture:   CaptureConfig{ExposureSec: 5},
		Centering: CenteringConfig{ThresholdArcmin: platesolve.DefaultThreshold, TimeoutSec: 600},
		Telescope: TelescopeConfig{Epoch: "J2000", SyncResidual: 0.1},
		Server:    ServerConfig{Addr: ":8080", MaxUploadMB: 64},
		Metrics:   MetricsConfig{Enabled: true},
		Tracing:   observability.TracingConfig{ServiceName: "platesolve", Exporter: "stdout", SampleRatio: 1},
		History:   HistoryConfig{Capacity: 100},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a solve.
// Missing optics are allowed here; they are checked per call.
func (c *Config) Validate() error {
	switch c.Solver.Type {
	case SolverASTAP, SolverRemote, SolverSim:
	default:
		return fmt.Errorf("solver.type must be one of astap, remote, sim; got %q", c.Solver.Type)
	}
	if c.Solver.Type == SolverRemote && c.Solver.Remote.URL == "" {
		return fmt.Errorf("solver.remote.url is required for the remote solver")
	}
	if c.Optics.FocalLengthMm < 0 || c.Optics.PixelSizeUm < 0 {
		return fmt.Errorf("optics focal_length_mm and pixel_size_um must not be negative")
	}
	if c.Solve.SearchRadiusDeg < 0 || c.Solve.SearchRadiusDeg > 180 {
		return fmt.Errorf("solve.search_radius_deg must be between 0 and 180, got %.2f", c.Solve.SearchRadiusDeg)
	}
	if c.Solve.ReattemptDelaySec < 0 {
		return fmt.Errorf("solve.reattempt_delay_s must not be negative")
	}
	if c.Centering.ThresholdArcmin <= 0 {
		return fmt.Errorf("centering.threshold_arcmin must be > 0, got %.2f", c.Centering.ThresholdArcmin)
	}
	if c.Observer.LatitudeDeg < -90 || c.Observer.LatitudeDeg > 90 {
		return fmt.Errorf("observer.latitude_deg must be between -90 and 90, got %.2f", c.Observer.LatitudeDeg)
	}
	if _, err := astro.ParseEpoch(c.Telescope.Epoch); err != nil {
		return fmt.Errorf("telescope.epoch: %w", err)
	}
	if c.Telescope.SyncResidual < 0 || c.Telescope.SyncResidual > 1 {
		return fmt.Errorf("telescope.sync_residual must be between 0 and 1, got %.2f", c.Telescope.SyncResidual)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// PlateSolveParameter returns a solve parameter snapshot without a hint.
func (c *Config) PlateSolveParameter() platesolve.PlateSolveParameter {
	return platesolve.PlateSolveParameter{
		FocalLength:          c.Optics.FocalLengthMm,
		PixelSize:            c.Optics.PixelSizeUm,
		Binning:              c.Optics.Binning,
		ImageWidth:           c.Optics.WidthPx,
		ImageHeight:          c.Optics.HeightPx,
		SearchRadius:         c.Solve.SearchRadiusDeg,
		DownSampleFactor:     c.Solve.Downsample,
		MaxObjects:           c.Solve.MaxObjects,
		DisableBlindFailover: !c.Solver.BlindFailover,
	}
}

// CaptureSolverParameter returns a capture parameter snapshot.
func (c *Config) CaptureSolverParameter() platesolve.CaptureSolverParameter {
	return platesolve.CaptureSolverParameter{
		PlateSolveParameter: c.PlateSolveParameter(),
		Attempts:            c.Solve.Attempts,
		ReattemptDelay:      seconds(c.Solve.ReattemptDelaySec),
	}
}

// CenterSolveParameter returns a centering parameter snapshot for target.
func (c *Config) CenterSolveParameter(target astro.Coordinates) platesolve.CenterSolveParameter {
	capture := c.CaptureSolverParameter()
	capture.PlateSolveParameter = capture.WithHint(target)
	return platesolve.CenterSolveParameter{
		CaptureSolverParameter: capture,
		Threshold:              c.Centering.ThresholdArcmin,
		NoSync:                 c.Centering.NoSync,
	}
}

// CaptureSequence returns the solve exposure.
func (c *Config) CaptureSequence() platesolve.CaptureSequence {
	return platesolve.CaptureSequence{
		ExposureTime: seconds(c.Capture.ExposureSec),
		Gain:         c.Capture.Gain,
		Offset:       c.Capture.Offset,
		Binning:      c.Optics.Binning,
		Filter:       c.Capture.Filter,
	}
}

// ObserverSite returns the observing site.
func (c *Config) ObserverSite() astro.Observer {
	return astro.Observer{
		Latitude:  astro.AngleFromDegrees(c.Observer.LatitudeDeg),
		Longitude: astro.AngleFromDegrees(c.Observer.LongitudeDeg),
		Elevation: c.Observer.ElevationM,
		DeltaUT1:  c.Observer.DeltaUT1Sec,
	}
}

// MountEpoch returns the simulated mount epoch. Validate has already checked it.
func (c *Config) MountEpoch() astro.Epoch {
	e, _ := astro.ParseEpoch(c.Telescope.Epoch)
	return e
}

// CenteringTimeout returns the centering deadline, or 0 for none.
func (c *Config) CenteringTimeout() time.Duration {
	return seconds(c.Centering.TimeoutSec)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
