// Package astap runs an ASTAP-compatible command line solver as a
// platesolve.Solver.
package astap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/logging"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

const (
	// DefaultExecutable is looked up on PATH.
	DefaultExecutable = "astap"

	// DefaultTimeout bounds one solver run.
	DefaultTimeout = 2 * time.Minute

	blindRadius = 180.0
)

// runFunc runs the solver executable and returns its combined output.
type runFunc func(ctx context.Context, name string, args []string) ([]byte, error)

// Solver invokes the executable once per request. Inputs and outputs live
// in a private temporary directory that is removed before Solve returns.
type Solver struct {
	executable string
	timeout    time.Duration
	workDir    string
	log        *logging.Logger
	run        runFunc
}

// Option configures a Solver.
type Option func(*Solver)

// WithTimeout sets the per-run timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Solver) {
		s.timeout = d
	}
}

// WithWorkDir sets the parent directory of the per-run temp directories.
func WithWorkDir(dir string) Option {
	return func(s *Solver) {
		s.workDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Solver for executable. An empty executable uses
// DefaultExecutable.
func New(executable string, opts ...Option) *Solver {
	if executable == "" {
		executable = DefaultExecutable
	}
	s := &Solver{
		executable: executable,
		timeout:    DefaultTimeout,
		log:        logging.Discard(),
		run:        execRun,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("solver", "astap")
	return s
}

// Solve implements platesolve.Solver.
func (s *Solver) Solve(ctx context.Context, img platesolve.Image, req platesolve.Request, _ platesolve.ProgressSink) (platesolve.PlateSolveResult, error) {
	dir, err := os.MkdirTemp(s.workDir, "astap-*")
	if err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("remove work dir %s: %v", dir, err)
		}
	}()

	imagePath := filepath.Join(dir, "solve"+imageExtension(img))
	if err := os.WriteFile(imagePath, img.Data, 0o600); err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("write image: %w", err)
	}

	args := buildArgs(imagePath, req)
	s.log.Debug("running %s %s", s.executable, strings.Join(args, " "))

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, runErr := s.run(runCtx, s.executable, args)
	if err := ctx.Err(); err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("astap: %w", err)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return platesolve.PlateSolveResult{}, fmt.Errorf("run %s: %w", s.executable, runErr)
		}
		// A non-zero exit usually means "no solution"; the .ini decides.
		s.log.Debug("%s exited with code %d: %s", s.executable, exitErr.ExitCode(), bytes.TrimSpace(out))
	}

	radius := req.Parameter().SearchRadius
	if _, blind := req.(platesolve.BlindRequest); blind {
		radius = blindRadius
	}

	iniPath := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".ini"
	f, err := os.Open(iniPath)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Warn("no result file written by %s", s.executable)
		return platesolve.PlateSolveResult{Success: false, Radius: radius, SolveTime: time.Now()}, nil
	}
	if err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("open result: %w", err)
	}
	defer f.Close()

	sol, err := parseINI(f)
	if err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("parse result: %w", err)
	}
	if sol.Error != "" {
		s.log.Warn("solver error: %s", sol.Error)
	}
	if sol.Warning != "" {
		s.log.Info("solver warning: %s", sol.Warning)
	}
	return sol.result(radius, time.Now()), nil
}

// buildArgs builds the command line. Targeted requests pass the J2000 hint as
// -ra (hours) and -spd (south pole distance, degrees).
func buildArgs(imagePath string, req platesolve.Request) []string {
	p := req.Parameter()
	args := []string{"-f", imagePath}

	fov := 0.0
	if p.ImageHeight > 0 {
		fov = astro.FieldOfView(p.ArcSecPerPixel(), p.ImageHeight)
	}
	args = append(args, "-fov", formatFloat(fov))

	if p.DownSampleFactor > 0 {
		args = append(args, "-z", strconv.Itoa(p.DownSampleFactor))
	}
	if p.MaxObjects > 0 {
		args = append(args, "-s", strconv.Itoa(p.MaxObjects))
	}

	switch r := req.(type) {
	case platesolve.TargetedRequest:
		hint := r.Hint.Transform(astro.J2000)
		args = append(args,
			"-r", formatFloat(p.SearchRadius),
			"-ra", formatFloat(hint.RA.Hours()),
			"-spd", formatFloat(hint.Dec.Degrees()+90),
		)
	case platesolve.BlindRequest:
		args = append(args, "-r", formatFloat(blindRadius))
	}
	return args
}

func imageExtension(img platesolve.Image) string {
	if ext := filepath.Ext(img.Name); ext != "" {
		return strings.ToLower(ext)
	}
	switch strings.ToLower(img.Format) {
	case "", "fits", "fit":
		return ".fits"
	case "jpeg":
		return ".jpg"
	case "tiff":
		return ".tif"
	default:
		return "." + strings.ToLower(img.Format)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func execRun(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 5 * time.Second
	return cmd.CombinedOutput()
}
