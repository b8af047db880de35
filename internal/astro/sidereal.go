package astro

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/nutation"
)

// julianDate returns the Julian Date for t (UTC).
func julianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// greenwichMeanSiderealTime calculates GMST in degrees for a UT1 instant.
// Uses the IAU 1982 formula.
func greenwichMeanSiderealTime(ut1 time.Time) float64 {
	jd := julianDate(ut1)
	T := (jd - 2451545.0) / 36525.0

	gmst := 280.46061837 +
		360.98564736629*(jd-2451545.0) +
		0.000387933*T*T -
		T*T*T/38710000.0

	return normalizeDegrees(gmst)
}

// greenwichApparentSiderealTime adds the equation of the equinoxes to GMST.
func greenwichApparentSiderealTime(ut1 time.Time) float64 {
	jd := julianDate(ut1)
	dPsi, dEps := nutation.Nutation(jd)
	eps := nutation.MeanObliquity(jd).Rad() + dEps.Rad()
	eqEq := radToDeg(dPsi.Rad() * math.Cos(eps))
	return normalizeDegrees(greenwichMeanSiderealTime(ut1) + eqEq)
}

// LocalSiderealTime returns the local apparent sidereal time at the observer
// for the UTC instant t, corrected to UT1 with the observer's ΔUT1.
func LocalSiderealTime(obs Observer, t time.Time) Angle {
	ut1 := t.Add(time.Duration(obs.DeltaUT1 * float64(time.Second)))
	return AngleFromDegrees(normalizeDegrees(greenwichApparentSiderealTime(ut1) + obs.Longitude.Degrees()))
}
