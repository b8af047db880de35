package astro

import (
	"fmt"
	"math"
	"time"
)

// Observer is a ground-based observing site. Elevation is carried for
// reporting only; the refraction-free alt/az conversion does not use it.
type Observer struct {
	Latitude  Angle   // north positive
	Longitude Angle   // east positive
	Elevation float64 // meters above sea level
	DeltaUT1  float64 // UT1 - UTC in seconds
}

// TopocentricCoordinates is an azimuth/altitude position as seen by an
// observer at a specific instant.
type TopocentricCoordinates struct {
	Azimuth    Angle // 0° = North, 90° = East
	Altitude   Angle // 0° = horizon, 90° = zenith
	Observer   Observer
	ObservedAt time.Time
}

// Latitude returns the observer latitude.
func (tc TopocentricCoordinates) Latitude() Angle { return tc.Observer.Latitude }

// Longitude returns the observer longitude.
func (tc TopocentricCoordinates) Longitude() Angle { return tc.Observer.Longitude }

// String formats the position for logs.
func (tc TopocentricCoordinates) String() string {
	return fmt.Sprintf("Az %.4f° Alt %.4f°", tc.Azimuth.Degrees(), tc.Altitude.Degrees())
}

// Topocentric converts c to azimuth/altitude for the observer at the current
// time.
func (c Coordinates) Topocentric(obs Observer) TopocentricCoordinates {
	return c.TopocentricAt(obs, time.Now())
}

// TopocentricAt converts c to azimuth/altitude for the observer at time t.
// The position is first brought to JNOW; refraction is not modelled.
func (c Coordinates) TopocentricAt(obs Observer, t time.Time) TopocentricCoordinates {
	now := c.TransformAt(JNOW, t)

	lat := obs.Latitude.Radians()
	dec := now.Dec.Radians()
	ha := LocalSiderealTime(obs, t).Radians() - now.RA.Radians()

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	sinAlt = math.Max(-1, math.Min(1, sinAlt))
	alt := math.Asin(sinAlt)

	az := math.Atan2(
		-math.Cos(dec)*math.Sin(ha),
		math.Sin(dec)*math.Cos(lat)-math.Cos(dec)*math.Sin(lat)*math.Cos(ha),
	)

	return TopocentricCoordinates{
		Azimuth:    AngleFromDegrees(normalizeDegrees(radToDeg(az))),
		Altitude:   AngleFromRadians(alt),
		Observer:   obs,
		ObservedAt: t,
	}
}

// Transform converts the position back to equatorial coordinates in the
// requested epoch, using the stored observation instant.
func (tc TopocentricCoordinates) Transform(epoch Epoch) Coordinates {
	lat := tc.Observer.Latitude.Radians()
	alt := tc.Altitude.Radians()
	az := tc.Azimuth.Radians()

	sinDec := math.Sin(lat)*math.Sin(alt) + math.Cos(lat)*math.Cos(alt)*math.Cos(az)
	sinDec = math.Max(-1, math.Min(1, sinDec))
	dec := math.Asin(sinDec)

	ha := math.Atan2(
		-math.Sin(az)*math.Cos(alt),
		math.Cos(lat)*math.Sin(alt)-math.Sin(lat)*math.Cos(alt)*math.Cos(az),
	)
	ra := LocalSiderealTime(tc.Observer, tc.ObservedAt).Radians() - ha

	now := NewCoordinates(AngleFromRadians(ra), AngleFromRadians(dec), JNOW)
	return now.TransformAt(epoch, tc.ObservedAt)
}
