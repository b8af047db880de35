package astap

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// solution holds the fields of an ASTAP .ini result file.
type solution struct {
	Solved bool

	CRVAL1, CRVAL2 float64 // reference RA/Dec, degrees J2000
	CDELT1, CDELT2 float64 // degrees per pixel
	CROTA1, CROTA2 float64 // degrees

	CD11, CD12, CD21, CD22 float64

	Error   string
	Warning string
}

// parseINI reads KEY=VALUE lines. Unknown keys are ignored.
func parseINI(r io.Reader) (solution, error) {
	var sol solution
	floats := map[string]*float64{
		"CRVAL1": &sol.CRVAL1,
		"CRVAL2": &sol.CRVAL2,
		"CDELT1": &sol.CDELT1,
		"CDELT2": &sol.CDELT2,
		"CROTA1": &sol.CROTA1,
		"CROTA2": &sol.CROTA2,
		"CD1_1":  &sol.CD11,
		"CD1_2":  &sol.CD12,
		"CD2_1":  &sol.CD21,
		"CD2_2":  &sol.CD22,
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "[") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "PLTSOLVD":
			sol.Solved = strings.EqualFold(value, "T")
		case "ERROR":
			sol.Error = value
		case "WARNING":
			sol.Warning = value
		default:
			dst, ok := floats[key]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return solution{}, fmt.Errorf("line %d: invalid %s value %q: %w", lineNo, key, value, err)
			}
			*dst = v
		}
	}
	if err := scanner.Err(); err != nil {
		return solution{}, fmt.Errorf("read ini: %w", err)
	}
	return sol, nil
}

// pixscale returns arcsec/px, preferring CDELT2 over the CD matrix.
func (s solution) pixscale() float64 {
	if s.CDELT2 != 0 {
		return math.Abs(s.CDELT2) * 3600
	}
	return math.Hypot(s.CD21, s.CD22) * 3600
}

// flipped reports a mirrored image: a positive CD determinant.
func (s solution) flipped() bool {
	return s.CD11*s.CD22-s.CD12*s.CD21 > 0
}

func (s solution) result(radius float64, at time.Time) platesolve.PlateSolveResult {
	if !s.Solved {
		return platesolve.PlateSolveResult{Success: false, Radius: radius, SolveTime: at}
	}

	orientation := math.Mod(s.CROTA2, 360)
	if orientation < 0 {
		orientation += 360
	}

	return platesolve.PlateSolveResult{
		Success: true,
		Coordinates: astro.NewCoordinates(
			astro.AngleFromDegrees(s.CRVAL1),
			astro.AngleFromDegrees(s.CRVAL2),
			astro.J2000,
		),
		Orientation: orientation,
		Flipped:     s.flipped(),
		Pixscale:    s.pixscale(),
		Radius:      radius,
		SolveTime:   at,
	}
}
