// Package astro provides angle and sky-coordinate value types and the
// spherical astronomy used to transform between them.
package astro

import (
	"fmt"
	"math"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// Angle is an immutable angular value. The degree, radian and hour views are
// derived once at construction and always agree with each other.
type Angle struct {
	degrees float64
	radians float64
	hours   float64
}

// AngleFromDegrees creates an Angle from degrees.
func AngleFromDegrees(deg float64) Angle {
	return Angle{
		degrees: deg,
		radians: degToRad(deg),
		hours:   deg / 15,
	}
}

// AngleFromHours creates an Angle from hours (1h = 15°).
func AngleFromHours(h float64) Angle {
	deg := h * 15
	return Angle{
		degrees: deg,
		radians: degToRad(deg),
		hours:   h,
	}
}

// AngleFromRadians creates an Angle from radians.
func AngleFromRadians(rad float64) Angle {
	deg := radToDeg(rad)
	return Angle{
		degrees: deg,
		radians: rad,
		hours:   deg / 15,
	}
}

// AngleFromArcMinutes creates an Angle from arc-minutes.
func AngleFromArcMinutes(arcmin float64) Angle {
	return AngleFromDegrees(arcmin / 60)
}

// AngleFromArcSeconds creates an Angle from arc-seconds.
func AngleFromArcSeconds(arcsec float64) Angle {
	return AngleFromDegrees(arcsec / 3600)
}

// Degrees returns the angle in degrees.
func (a Angle) Degrees() float64 { return a.degrees }

// Radians returns the angle in radians.
func (a Angle) Radians() float64 { return a.radians }

// Hours returns the angle in hours.
func (a Angle) Hours() float64 { return a.hours }

// ArcMinutes returns the angle in arc-minutes.
func (a Angle) ArcMinutes() float64 { return a.degrees * 60 }

// ArcSeconds returns the angle in arc-seconds.
func (a Angle) ArcSeconds() float64 { return a.degrees * 3600 }

// Add returns a + b.
func (a Angle) Add(b Angle) Angle { return AngleFromRadians(a.radians + b.radians) }

// Sub returns a - b.
func (a Angle) Sub(b Angle) Angle { return AngleFromRadians(a.radians - b.radians) }

// Mul returns a scaled by f.
func (a Angle) Mul(f float64) Angle { return AngleFromRadians(a.radians * f) }

// Div returns a divided by f.
func (a Angle) Div(f float64) Angle { return AngleFromRadians(a.radians / f) }

// Neg returns -a.
func (a Angle) Neg() Angle { return AngleFromRadians(-a.radians) }

// Abs returns |a|.
func (a Angle) Abs() Angle { return AngleFromRadians(math.Abs(a.radians)) }

// The trig operators below treat the angle's radian value as their argument
// and wrap the numeric result back into an Angle (as radians).

// Sin returns sin(a).
func (a Angle) Sin() Angle { return AngleFromRadians(math.Sin(a.radians)) }

// Cos returns cos(a).
func (a Angle) Cos() Angle { return AngleFromRadians(math.Cos(a.radians)) }

// Tan returns tan(a).
func (a Angle) Tan() Angle { return AngleFromRadians(math.Tan(a.radians)) }

// Asin returns asin(a).
func (a Angle) Asin() Angle { return AngleFromRadians(math.Asin(a.radians)) }

// Acos returns acos(a).
func (a Angle) Acos() Angle { return AngleFromRadians(math.Acos(a.radians)) }

// Atan returns atan(a).
func (a Angle) Atan() Angle { return AngleFromRadians(math.Atan(a.radians)) }

// Atan2 returns atan2(y, x).
func Atan2(y, x Angle) Angle { return AngleFromRadians(math.Atan2(y.radians, x.radians)) }

// Equal reports whether a and b are within tolerance tol of each other.
func (a Angle) Equal(b Angle, tol Angle) bool {
	return math.Abs(a.radians-b.radians) <= math.Abs(tol.radians)
}

// String formats the angle sexagesimally (d°m′s″).
func (a Angle) String() string {
	return fmt.Sprint(sexa.FmtAngle(unit.Angle(a.radians)))
}

// HMS formats the angle as hours (hʰmᵐsˢ), normalized into [0h, 24h).
func (a Angle) HMS() string {
	return fmt.Sprint(sexa.FmtRA(unit.RAFromRad(a.radians)))
}

// normalizeDegrees wraps deg into [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// normalizeDelta wraps deg into (-180, 180].
func normalizeDelta(deg float64) float64 {
	deg = normalizeDegrees(deg)
	if deg > 180 {
		deg -= 360
	}
	return deg
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// radToDeg converts radians to degrees.
func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
