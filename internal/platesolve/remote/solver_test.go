package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

func testParameter() platesolve.PlateSolveParameter {
	p := platesolve.DefaultPlateSolveParameter()
	p.FocalLength = 750
	p.PixelSize = 3.8
	p.ImageWidth = 4656
	p.ImageHeight = 3520
	p.SearchRadius = 10
	return p
}

func TestSolver_TargetedRequest(t *testing.T) {
	var form map[string]string
	var imageBytes []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != SolvePath {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		f, _, err := r.FormFile(FieldImage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		imageBytes, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Solution{
			Success:     true,
			Ra:          83.82,
			Dec:         -5.39,
			Orientation: 12.5,
			Pixscale:    1.045,
			Radius:      10,
			SolveTime:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}))
	defer srv.Close()

	hint := astro.NewCoordinates(astro.AngleFromDegrees(83.8), astro.AngleFromDegrees(-5.4), astro.J2000)
	s := New(srv.URL + "/")
	res, err := s.Solve(context.Background(), platesolve.Image{Name: "m42.fits", Data: []byte("SIMPLE")}, platesolve.NewRequest(testParameter().WithHint(hint)), nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if math.Abs(res.Coordinates.RA.Degrees()-83.82) > 1e-9 || math.Abs(res.Coordinates.Dec.Degrees()+5.39) > 1e-9 {
		t.Errorf("coordinates = %v", res.Coordinates)
	}
	if res.Orientation != 12.5 || res.Pixscale != 1.045 {
		t.Errorf("orientation=%v pixscale=%v", res.Orientation, res.Pixscale)
	}

	want := map[string]string{
		FieldFocalLength:  "750",
		FieldPixelSize:    "3.8",
		FieldWidth:        "4656",
		FieldHeight:       "3520",
		FieldSearchRadius: "10",
		FieldRA:           "83.8",
		FieldDec:          "-5.4",
	}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, form[k], v)
		}
	}
	if string(imageBytes) != "SIMPLE" {
		t.Errorf("uploaded image = %q", imageBytes)
	}
}

func TestSolver_BlindRequestOmitsHint(t *testing.T) {
	var hasRA bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		_, hasRA = r.MultipartForm.Value[FieldRA]
		json.NewEncoder(w).Encode(Solution{Success: false, Error: "no solution"})
	}))
	defer srv.Close()

	res, err := New(srv.URL).Solve(context.Background(), platesolve.Image{Data: []byte{1}}, platesolve.NewRequest(testParameter()), nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Success {
		t.Error("success=false response should be a failed solve")
	}
	if res.SolveTime.IsZero() {
		t.Error("SolveTime not set")
	}
	if hasRA {
		t.Error("blind request sent a hint")
	}
}

func TestSolver_HTTPErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantSub string
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "index files missing", http.StatusInternalServerError)
			},
			"500",
		},
		{
			"bad json",
			func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "{not json")
			},
			"decode",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := New(srv.URL).Solve(context.Background(), platesolve.Image{Data: []byte{1}}, platesolve.NewRequest(testParameter()), nil)
			if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("Solve error = %v, want it to mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestSolver_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL).Solve(ctx, platesolve.Image{Data: []byte{1}}, platesolve.NewRequest(testParameter()), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Solve error = %v, want context.DeadlineExceeded", err)
	}
}

func TestOptions(t *testing.T) {
	client := &http.Client{}
	s := New("http://solver.local", WithHTTPClient(client))
	if s.client != client {
		t.Error("WithHTTPClient not applied")
	}
	if s.URL() != "http://solver.local/api/solve" {
		t.Errorf("URL() = %q", s.URL())
	}

	s = New("http://solver.local", WithTimeout(5*time.Second))
	if s.client.Timeout != 5*time.Second {
		t.Errorf("client timeout = %v, want 5s", s.client.Timeout)
	}
}

func TestSolutionRoundTrip(t *testing.T) {
	c := astro.NewCoordinates(astro.AngleFromDegrees(10), astro.AngleFromDegrees(41.27), astro.J2000)
	res := platesolve.PlateSolveResult{Success: true, Coordinates: c, Orientation: 33, Pixscale: 2, Flipped: true, Radius: 5}

	sol := NewSolution(res, testParameter())
	if math.Abs(sol.FieldWidth-2*4656.0/60) > 1e-9 {
		t.Errorf("FieldWidth = %v", sol.FieldWidth)
	}
	back := sol.Result()
	if back.Coordinates != c || !back.Flipped || back.Orientation != 33 {
		t.Errorf("Result() = %+v, want coordinates %v flipped", back, c)
	}

	failed := NewSolution(platesolve.PlateSolveResult{Radius: 180}, testParameter())
	if failed.Success || failed.Ra != 0 || failed.Radius != 180 {
		t.Errorf("failed solution = %+v", failed)
	}
}
