package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
	"github.com/litescript/ls-platesolve/internal/platesolve/remote"
	"github.com/litescript/ls-platesolve/internal/version"
)

// multipartMemory is the in-memory part of a parsed upload; the rest spills
// to temp files.
const multipartMemory = 32 << 20

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.cfg.History == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	c.JSON(http.StatusOK, s.cfg.History.Snapshot())
}

// handleSolve solves an uploaded image. Form errors and invalid optics are
// 400, solver failures are 500, and an unsolved image is 200 with
// success=false.
func (s *Server) handleSolve(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}

	p, err := parseParameter(c, s.cfg.Defaults)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if s.cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SolveTimeout)
		defer cancel()
	}

	res, err := s.solver.Solve(ctx, img, p, nil)
	if err != nil {
		var ce *platesolve.ConfigurationError
		if errors.As(err, &ce) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ce.Error()})
			return
		}
		s.log.Error("solve %s: %v", img.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "solve failed",
			"details": err.Error(),
		})
		return
	}

	if s.cfg.History != nil {
		s.cfg.History.Record(res, 1, 0)
	}

	sol := remote.NewSolution(res, p)
	if !res.Success {
		sol.Error = "no solution found"
	}
	c.JSON(http.StatusOK, sol)
}

// parseParameter overlays form fields on defaults. Every number must be
// finite. ra and dec (J2000
// degrees) must be given together.
func parseParameter(c *gin.Context, defaults platesolve.PlateSolveParameter) (platesolve.PlateSolveParameter, error) {
	p := defaults.WithoutHint()

	floats := []struct {
		field string
		dst   *float64
	}{
		{remote.FieldFocalLength, &p.FocalLength},
		{remote.FieldPixelSize, &p.PixelSize},
		{remote.FieldSearchRadius, &p.SearchRadius},
	}
	for _, f := range floats {
		if err := formFloat(c, f.field, f.dst); err != nil {
			return p, err
		}
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{remote.FieldBinning, &p.Binning},
		{remote.FieldWidth, &p.ImageWidth},
		{remote.FieldHeight, &p.ImageHeight},
		{remote.FieldDownsample, &p.DownSampleFactor},
		{remote.FieldMaxObjects, &p.MaxObjects},
	}
	for _, f := range ints {
		if err := formInt(c, f.field, f.dst); err != nil {
			return p, err
		}
	}

	raStr := strings.TrimSpace(c.PostForm(remote.FieldRA))
	decStr := strings.TrimSpace(c.PostForm(remote.FieldDec))
	switch {
	case raStr == "" && decStr == "":
	case raStr == "" || decStr == "":
		return p, fmt.Errorf("'%s' and '%s' must be given together", remote.FieldRA, remote.FieldDec)
	default:
		ra, err := parseFinite(raStr)
		if err != nil {
			return p, fmt.Errorf("invalid '%s' value, must be a number", remote.FieldRA)
		}
		dec, err := parseFinite(decStr)
		if err != nil || dec < -90 || dec > 90 {
			return p, fmt.Errorf("invalid '%s' value, must be a number between -90 and 90", remote.FieldDec)
		}
		p = p.WithHint(astro.NewCoordinates(astro.AngleFromDegrees(ra), astro.AngleFromDegrees(dec), astro.J2000))
	}
	return p, nil
}

func formFloat(c *gin.Context, field string, dst *float64) error {
	s := strings.TrimSpace(c.PostForm(field))
	if s == "" {
		return nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return fmt.Errorf("invalid '%s' value, must be a number", field)
	}
	*dst = v
	return nil
}

// parseFinite rejects the NaN and Inf spellings ParseFloat accepts.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

func formInt(c *gin.Context, field string, dst *int) error {
	s := strings.TrimSpace(c.PostForm(field))
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fmt.Errorf("invalid '%s' value, must be a non-negative integer", field)
	}
	*dst = v
	return nil
}

func readImage(c *gin.Context) (platesolve.Image, error) {
	file, err := c.FormFile(remote.FieldImage)
	if err != nil {
		return platesolve.Image{}, fmt.Errorf("missing '%s' file", remote.FieldImage)
	}
	src, err := file.Open()
	if err != nil {
		return platesolve.Image{}, fmt.Errorf("open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return platesolve.Image{}, fmt.Errorf("read uploaded file: %w", err)
	}
	if len(data) == 0 {
		return platesolve.Image{}, fmt.Errorf("uploaded '%s' file is empty", remote.FieldImage)
	}

	return platesolve.Image{
		Name:   filepath.Base(file.Filename),
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), "."),
		Data:   data,
	}, nil
}
