package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/config"
	"github.com/litescript/ls-platesolve/internal/history"
	"github.com/litescript/ls-platesolve/internal/logging"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Solver.Type = config.SolverSim
	cfg.Optics.FocalLengthMm = 750
	cfg.Optics.PixelSizeUm = 3.76
	cfg.Optics.WidthPx = 640
	cfg.Optics.HeightPx = 480
	cfg.Solve.ReattemptDelaySec = 0
	cfg.Telescope.PointingErrorRADeg = 0.6
	cfg.Telescope.PointingErrorDecDeg = -0.4
	cfg.Telescope.SlewSec = 0
	return cfg
}

func testApp() *app {
	return &app{
		cfg:     testConfig(),
		log:     logging.Discard(),
		history: history.NewManager(history.DefaultConfig()),
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name    string
		ra, dec string
		blind   bool
		wantNil bool
		wantErr bool
		wantRA  float64
	}{
		{"none", "", "", false, true, false, 0},
		{"sexagesimal", "05:35:17.3", "-05:23:28", false, false, false, 83.822},
		{"degrees", "83.82d", "-5.39", false, false, false, 83.82},
		{"missing dec", "05:35:17", "", false, false, true, 0},
		{"bad dec", "05:35:17", "-95", false, false, true, 0},
		{"blind drops target", "05:35:17", "-05:23:28", true, true, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blindMode = tt.blind
			defer func() { blindMode = false }()

			got, err := parseTarget(tt.ra, tt.dec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (got == nil) != tt.wantNil {
				t.Fatalf("target = %v, wantNil %v", got, tt.wantNil)
			}
			if got == nil {
				return
			}
			if got.Epoch != astro.J2000 {
				t.Errorf("epoch = %v", got.Epoch)
			}
			if d := got.RA.Degrees() - tt.wantRA; d > 0.001 || d < -0.001 {
				t.Errorf("RA = %v°, want %v°", got.RA.Degrees(), tt.wantRA)
			}
		})
	}
}

func TestCenterJob_Headless(t *testing.T) {
	a := testApp()
	target := astro.NewCoordinates(astro.AngleFromHours(5.5), astro.AngleFromDegrees(-5), astro.J2000)

	j, err := a.centerJob(&target)
	if err != nil {
		t.Fatalf("centerJob: %v", err)
	}
	if j.threshold != 1.0 {
		t.Errorf("threshold = %v", j.threshold)
	}

	res, err := runHeadless(context.Background(), j, a.history, logging.Discard())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success || res.Separation == nil || res.Separation.Distance.ArcMinutes() > 1.0 {
		t.Fatalf("result = %v", res)
	}

	snap := a.history.Snapshot()
	if snap.Stats.Total < 2 {
		t.Errorf("history total = %d, want one attempt per iteration", snap.Stats.Total)
	}
	if snap.Last == nil || snap.Last.SeparationArcmin == nil {
		t.Errorf("last attempt not annotated: %+v", snap.Last)
	}

	var buf bytes.Buffer
	writeSummary(&buf, j.title, res, nil)
	if !strings.Contains(buf.String(), "solved") || !strings.Contains(buf.String(), "Separation") {
		t.Errorf("summary:\n%s", buf.String())
	}
}

func TestCenterJob_RequiresTarget(t *testing.T) {
	if _, err := testApp().centerJob(nil); err == nil {
		t.Fatal("expected error without a target")
	}
}

func TestCaptureJob_Blind(t *testing.T) {
	a := testApp()
	j, err := a.captureJob(nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := runHeadless(context.Background(), j, a.history, logging.Discard())
	if err != nil || !res.Success {
		t.Fatalf("capture = %v, %v", res, err)
	}
	if got := a.history.Snapshot().Stats.Solved; got != 1 {
		t.Errorf("solved = %d, want 1", got)
	}
}

func TestSolveJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "M42.FITS")
	if err := os.WriteFile(path, []byte("SIMPLE  =                    T"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := testApp()
	target := astro.NewCoordinates(astro.AngleFromHours(5.5), astro.AngleFromDegrees(-5), astro.J2000)
	j, err := a.solveJob(path, &target)
	if err != nil {
		t.Fatalf("solveJob: %v", err)
	}
	if !strings.Contains(j.title, "M42.FITS") {
		t.Errorf("title = %q", j.title)
	}

	res, err := j.run(context.Background(), nil)
	if err != nil || !res.Success {
		t.Fatalf("solve = %v, %v", res, err)
	}
	if got := a.history.Snapshot().Stats.Total; got != 1 {
		t.Errorf("history total = %d, want 1", got)
	}

	if _, err := a.solveJob(filepath.Join(dir, "missing.fits"), &target); err == nil {
		t.Error("expected error for a missing image")
	}
	if _, err := a.solveJob(path, nil); err == nil {
		t.Error("sim solver without a target should be rejected")
	}
}

func TestWriteSummary(t *testing.T) {
	tests := []struct {
		name string
		res  platesolve.PlateSolveResult
		err  error
		want []string
	}{
		{"error", platesolve.PlateSolveResult{}, errors.New("slew rejected"), []string{"error", "slew rejected"}},
		{"no solution", platesolve.PlateSolveResult{}, nil, []string{"no solution"}},
		{"solved", platesolve.PlateSolveResult{
			Success:     true,
			Coordinates: astro.NewCoordinates(astro.AngleFromHours(5.5), astro.AngleFromDegrees(-5), astro.J2000),
			Orientation: 12.5,
			Pixscale:    1.03,
			Flipped:     true,
		}, nil, []string{"solved", "12.50°", "1.030\"/px", "Flipped"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeSummary(&buf, "title", tt.res, tt.err)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("summary missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestDescribeEvent(t *testing.T) {
	res := platesolve.PlateSolveResult{}
	got := describeEvent(platesolve.Event{
		Phase:     platesolve.PhaseSolved,
		Attempt:   2,
		Iteration: 3,
		State:     platesolve.StateSyncFailed,
		Result:    &res,
	})
	for _, want := range []string{"solved", "attempt=2", "iteration=3", "state=sync-failed", "solve failed"} {
		if !strings.Contains(got, want) {
			t.Errorf("describeEvent = %q, missing %q", got, want)
		}
	}
}
