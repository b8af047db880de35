// Package remote solves images through a plate-solving HTTP service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
	"github.com/litescript/ls-platesolve/internal/version"
)

const (
	// SolvePath is the endpoint path below the base URL.
	SolvePath = "/api/solve"

	// DefaultTimeout for solve requests. Blind solves can be slow.
	DefaultTimeout = 3 * time.Minute
)

// Solver posts images to a remote solve service.
type Solver struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// Option configures a Solver.
type Option func(*Solver)

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Solver) {
		s.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Solver) {
		s.client = client
	}
}

// New creates a Solver for the service at baseURL.
func New(baseURL string, opts ...Option) *Solver {
	s := &Solver{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{
			Timeout: s.timeout,
		}
	}
	return s
}

// URL returns the solve endpoint.
func (s *Solver) URL() string {
	return s.baseURL + SolvePath
}

// Solve implements platesolve.Solver.
func (s *Solver) Solve(ctx context.Context, img platesolve.Image, req platesolve.Request, _ platesolve.ProgressSink) (platesolve.PlateSolveResult, error) {
	body, contentType, err := encodeRequest(img, req)
	if err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(), body)
	if err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "ls-platesolve/"+version.Version)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("post %s: %w", s.URL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return platesolve.PlateSolveResult{}, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var sol Solution
	if err := json.NewDecoder(resp.Body).Decode(&sol); err != nil {
		return platesolve.PlateSolveResult{}, fmt.Errorf("decode response: %w", err)
	}

	res := sol.Result()
	if res.SolveTime.IsZero() {
		res.SolveTime = time.Now()
	}
	return res, nil
}

func encodeRequest(img platesolve.Image, req platesolve.Request) (*bytes.Buffer, string, error) {
	p := req.Parameter()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{FieldFocalLength, formatFloat(p.FocalLength)},
		{FieldPixelSize, formatFloat(p.PixelSize)},
		{FieldBinning, strconv.Itoa(max(p.Binning, 1))},
		{FieldWidth, strconv.Itoa(p.ImageWidth)},
		{FieldHeight, strconv.Itoa(p.ImageHeight)},
		{FieldDownsample, strconv.Itoa(p.DownSampleFactor)},
		{FieldMaxObjects, strconv.Itoa(p.MaxObjects)},
	}
	if r, ok := req.(platesolve.TargetedRequest); ok {
		hint := r.Hint.Transform(astro.J2000)
		fields = append(fields,
			[2]string{FieldSearchRadius, formatFloat(p.SearchRadius)},
			[2]string{FieldRA, formatFloat(hint.RA.Degrees())},
			[2]string{FieldDec, formatFloat(hint.Dec.Degrees())},
		)
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	name := img.Name
	if name == "" {
		name = "image." + strings.ToLower(defaultString(img.Format, "fits"))
	}
	part, err := w.CreateFormFile(FieldImage, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
