package astro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// arcsecPerRadianMilli is 206264.806"/rad scaled for µm/mm.
const arcsecPerRadianMilli = 206.265

// ArcsecPerPixel returns the image scale in arcsec/pixel for a pixel size in
// µm and a focal length in mm.
func ArcsecPerPixel(pixelSizeUm, focalLengthMm float64) float64 {
	return pixelSizeUm / focalLengthMm * arcsecPerRadianMilli
}

// FieldOfView returns the field of view in degrees spanned by a number of
// pixels at the given scale.
func FieldOfView(arcsecPerPixel float64, pixels int) float64 {
	return arcsecPerPixel * float64(pixels) / 3600
}

// ParseRA parses a right ascension given as hours ("10:20:30", "10h20m30s",
// "10 20 30") or decimal hours ("10.5"). A trailing "d" or "°" marks decimal
// degrees instead ("157.5d").
func ParseRA(s string) (Angle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Angle{}, fmt.Errorf("empty right ascension")
	}
	if strings.HasSuffix(s, "d") || strings.HasSuffix(s, "°") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimRight(s, "d°")), 64)
		if err != nil {
			return Angle{}, fmt.Errorf("parse right ascension %q: %w", s, err)
		}
		return AngleFromDegrees(normalizeDegrees(v)), nil
	}

	v, err := parseSexagesimal(s, "hms")
	if err != nil {
		return Angle{}, fmt.Errorf("parse right ascension %q: %w", s, err)
	}
	if v < 0 || v >= 24 {
		return Angle{}, fmt.Errorf("right ascension %q out of range [0h, 24h)", s)
	}
	return AngleFromHours(v), nil
}

// ParseDec parses a declination given as "+10:20:30", "-5d30m", "10°20′30″"
// or decimal degrees.
func ParseDec(s string) (Angle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Angle{}, fmt.Errorf("empty declination")
	}
	v, err := parseSexagesimal(s, "d°m′'s″\"")
	if err != nil {
		return Angle{}, fmt.Errorf("parse declination %q: %w", s, err)
	}
	if v < -90 || v > 90 {
		return Angle{}, fmt.Errorf("declination %q out of range [-90°, 90°]", s)
	}
	return AngleFromDegrees(v), nil
}

// parseSexagesimal parses "a:b:c", "a b c" or a value with unit separators
// into a decimal of the leading unit.
func parseSexagesimal(s, separators string) (float64, error) {
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == ' ' || strings.ContainsRune(separators, r)
	})
	if len(fields) == 0 || len(fields) > 3 {
		return 0, fmt.Errorf("expected 1 to 3 components, got %d", len(fields))
	}

	var value float64
	scale := 1.0
	for i, f := range fields {
		part, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, err
		}
		if part < 0 {
			return 0, fmt.Errorf("negative component %q", f)
		}
		if i > 0 && part >= 60 {
			return 0, fmt.Errorf("component %q must be below 60", f)
		}
		value += part / scale
		scale *= 60
	}

	if negative {
		value = -value
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid value")
	}
	return value, nil
}
