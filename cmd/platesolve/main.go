// Command platesolve solves images from the command line and centers a
// simulated mount on a target.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/backend"
	"github.com/litescript/ls-platesolve/internal/config"
	"github.com/litescript/ls-platesolve/internal/history"
	"github.com/litescript/ls-platesolve/internal/logging"
	"github.com/litescript/ls-platesolve/internal/observability"
	"github.com/litescript/ls-platesolve/internal/platesolve"
	"github.com/litescript/ls-platesolve/internal/sim"
	"github.com/litescript/ls-platesolve/internal/ui"
)

// CLI flags
var (
	configPath  string
	logLevel    string
	solverType  string
	raFlag      string
	decFlag     string
	blindMode   bool
	summaryMode bool
	historyPath string
)

// Exit codes
const (
	exitOK         = 0
	exitError      = 1
	exitUsage      = 2
	exitNoSolution = 3
)

func main() {
	flag.StringVar(&configPath, "config", "", "YAML configuration file")
	flag.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.StringVar(&solverType, "solver", "", "Solver override for solve (astap, remote, sim)")
	flag.StringVar(&raFlag, "ra", "", "Target RA, J2000 (hours \"05:35:17\" or degrees \"83.82d\")")
	flag.StringVar(&decFlag, "dec", "", "Target Dec, J2000 (\"-05:23:28\" or \"-5.39\")")
	flag.BoolVar(&blindMode, "blind", false, "Ignore -ra/-dec and solve blind")
	flag.BoolVar(&summaryMode, "summary", false, "Print a text summary instead of the TUI")
	flag.StringVar(&historyPath, "history-path", "", "Export solve history JSON to file (use - for stdout)")
	flag.Usage = usage
	flag.Parse()

	os.Exit(run(flag.Args()))
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: platesolve [flags] <command> [args]\n\n")
	fmt.Fprintf(out, "Commands:\n")
	fmt.Fprintf(out, "  solve <image>   solve an image file with the configured solver\n")
	fmt.Fprintf(out, "  capture         capture and solve with the simulated camera\n")
	fmt.Fprintf(out, "  center          center the simulated mount on -ra/-dec\n\n")
	fmt.Fprintf(out, "Flags:\n")
	flag.PrintDefaults()
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsage
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	if solverType != "" {
		cfg.Solver.Type = solverType
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitUsage
		}
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}

	headless := summaryMode || historyPath == "-" || !term.IsTerminal(int(os.Stdout.Fd()))

	// Logs would corrupt the TUI, so they are discarded while it runs.
	logOut := io.Writer(os.Stderr)
	if !headless {
		logOut = io.Discard
	}
	logger := logging.NewWithConfig(logging.Config{
		Level:  logging.ParseLevel(level),
		Format: cfg.Logging.Format,
		Output: logOut,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	target, err := parseTarget(raFlag, decFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	hist := history.NewManager(history.Config{MaxAttempts: cfg.History.Capacity})
	app := &app{cfg: cfg, log: logger, history: hist}

	var j job
	switch args[0] {
	case "solve":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: solve requires an image path")
			return exitUsage
		}
		j, err = app.solveJob(args[1], target)
	case "capture":
		j, err = app.captureJob(target)
	case "center":
		j, err = app.centerJob(target)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", args[0])
		usage()
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	var res platesolve.PlateSolveResult
	if headless {
		res, err = runHeadless(ctx, j, hist, logger)
	} else {
		res, err = runTUI(ctx, j, hist)
	}

	if historyPath != "" {
		if werr := exportHistory(hist, historyPath); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", werr)
		}
	}

	if historyPath != "-" {
		writeSummary(os.Stdout, j.title, res, err)
	}

	switch {
	case err != nil:
		return exitError
	case !res.Success:
		return exitNoSolution
	default:
		return exitOK
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// parseTarget parses -ra/-dec into J2000 coordinates. Both empty means no
// target; -blind drops it.
func parseTarget(ra, dec string) (*astro.Coordinates, error) {
	if blindMode || (ra == "" && dec == "") {
		return nil, nil
	}
	if ra == "" || dec == "" {
		return nil, errors.New("-ra and -dec must be given together")
	}
	raAngle, err := astro.ParseRA(ra)
	if err != nil {
		return nil, err
	}
	decAngle, err := astro.ParseDec(dec)
	if err != nil {
		return nil, err
	}
	c := astro.NewCoordinates(raAngle, decAngle, astro.J2000)
	return &c, nil
}

// job is one solve, capture or centering run.
type job struct {
	title     string
	threshold float64 // arcmin; 0 outside centering
	run       func(ctx context.Context, progress platesolve.ProgressSink) (platesolve.PlateSolveResult, error)
}

type app struct {
	cfg     *config.Config
	log     *logging.Logger
	history *history.Manager
}

func (a *app) solveJob(path string, target *astro.Coordinates) (job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return job{}, fmt.Errorf("read image: %w", err)
	}
	img := platesolve.Image{
		Name:   filepath.Base(path),
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Data:   data,
		Width:  a.cfg.Optics.WidthPx,
		Height: a.cfg.Optics.HeightPx,
	}

	// The simulator solver reports a mount pointed at the hint.
	var telescope *sim.Telescope
	if a.cfg.Solver.Type == config.SolverSim {
		if target == nil {
			return job{}, errors.New("the sim solver needs -ra/-dec")
		}
		telescope = backend.NewTelescope(a.cfg, *target)
	}
	adapter, err := backend.NewSolver(a.cfg, telescope, a.log)
	if err != nil {
		return job{}, err
	}
	solver := platesolve.NewImageSolver(adapter, nil, backend.Options(a.log, nil)...)

	p := a.cfg.PlateSolveParameter()
	if target != nil {
		p = p.WithHint(*target)
	}

	return job{
		title: "platesolve · " + img.Name,
		run: func(ctx context.Context, progress platesolve.ProgressSink) (platesolve.PlateSolveResult, error) {
			res, err := solver.Solve(ctx, img, p, progress)
			if err == nil {
				a.history.Record(res, 1, 0)
			}
			return res, err
		},
	}, nil
}

// simRig is the simulated camera, mount and solver used by capture and
// center.
func (a *app) simRig(start astro.Coordinates) (*platesolve.CaptureSolver, *sim.Telescope) {
	telescope := backend.NewTelescope(a.cfg, start)
	camera := sim.NewCamera(a.cfg.Optics.WidthPx, a.cfg.Optics.HeightPx)
	opts := backend.Options(a.log, nil)
	solver := platesolve.NewImageSolver(sim.NewSolver(telescope), nil, opts...)
	return platesolve.NewCaptureSolver(camera, solver, opts...), telescope
}

func (a *app) captureJob(target *astro.Coordinates) (job, error) {
	start := astro.NewCoordinates(astro.AngleFromDegrees(0), astro.AngleFromDegrees(0), astro.J2000)
	if target != nil {
		start = *target
	}
	capture, _ := a.simRig(start)

	p := a.cfg.CaptureSolverParameter()
	if target != nil {
		p.PlateSolveParameter = p.WithHint(*target)
	}
	seq := a.cfg.CaptureSequence()

	return job{
		title: "platesolve · capture",
		run: func(ctx context.Context, progress platesolve.ProgressSink) (platesolve.PlateSolveResult, error) {
			return capture.Solve(ctx, seq, p, progress)
		},
	}, nil
}

func (a *app) centerJob(target *astro.Coordinates) (job, error) {
	if target == nil {
		return job{}, errors.New("center requires -ra and -dec")
	}
	if alt := target.Topocentric(a.cfg.ObserverSite()).Altitude; alt.Degrees() < 0 {
		a.log.Warn("target %s is below the horizon (alt %.1f°)", target, alt.Degrees())
	}
	capture, telescope := a.simRig(*target)
	centering := platesolve.NewCenteringSolver(capture, telescope, backend.Options(a.log, nil)...)

	p := a.cfg.CenterSolveParameter(*target)
	seq := a.cfg.CaptureSequence()

	return job{
		title:     "platesolve · center " + target.String(),
		threshold: p.Threshold,
		run: func(ctx context.Context, progress platesolve.ProgressSink) (platesolve.PlateSolveResult, error) {
			// Centering loops until cancelled; the timeout bounds it.
			if d := a.cfg.CenteringTimeout(); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
			return centering.Center(ctx, seq, p, progress)
		},
	}, nil
}

func runHeadless(ctx context.Context, j job, hist *history.Manager, logger *logging.Logger) (platesolve.PlateSolveResult, error) {
	progress := platesolve.MultiSink(hist.Sink(), platesolve.ProgressFunc(func(e platesolve.Event) {
		logger.Info("%s", describeEvent(e))
	}))
	return j.run(ctx, progress)
}

type outcome struct {
	res platesolve.PlateSolveResult
	err error
}

func runTUI(ctx context.Context, j job, hist *history.Manager) (platesolve.PlateSolveResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.New(j.title, hist, j.threshold, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan outcome, 1)
	go func() {
		res, err := j.run(ctx, platesolve.MultiSink(hist.Sink(), ui.Sink(p.Send)))
		done <- outcome{res, err}
		p.Send(ui.DoneMsg{Result: res, Err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
	}

	// Quitting early cancels the job; wait for it to unwind.
	cancel()
	o := <-done
	return o.res, o.err
}

func exportHistory(hist *history.Manager, path string) error {
	if path == "-" {
		return hist.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer f.Close()
	return hist.WriteJSON(f)
}
