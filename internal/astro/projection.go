package astro

import (
	"fmt"
	"math"
	"strings"
)

// Projection selects the tangent-plane mapping used by Shift.
type Projection int

const (
	// Gnomonic is the TAN projection used by most plate solutions.
	Gnomonic Projection = iota
	// Stereographic stays well-behaved over wider fields.
	Stereographic
)

// String returns the projection name.
func (p Projection) String() string {
	switch p {
	case Gnomonic:
		return "gnomonic"
	case Stereographic:
		return "stereographic"
	default:
		return "unknown"
	}
}

// ParseProjection parses a projection name.
func ParseProjection(s string) (Projection, error) {
	switch strings.ToLower(s) {
	case "gnomonic", "tan":
		return Gnomonic, nil
	case "stereographic", "stg":
		return Stereographic, nil
	default:
		return 0, fmt.Errorf("unknown projection %q", s)
	}
}

// Shift returns the sky position offset from c by a pixel delta.
//
// deltaX/deltaY are in pixels (x right, y down), rotation is the image
// position angle in degrees and scaleX/scaleY are arcsec per pixel. c is the
// projection center. With rotation 0, +x points west and +y points south.
func (c Coordinates) Shift(deltaX, deltaY, rotation, scaleX, scaleY float64, projection Projection) Coordinates {
	xi0 := degToRad(-deltaX * scaleX / 3600)
	eta0 := degToRad(-deltaY * scaleY / 3600)

	sinRot, cosRot := math.Sincos(degToRad(rotation))
	xi := xi0*cosRot - eta0*sinRot
	eta := xi0*sinRot + eta0*cosRot

	ra0, dec0 := c.RA.Radians(), c.Dec.Radians()
	sinDec0, cosDec0 := math.Sincos(dec0)

	var ra, dec float64
	switch projection {
	case Gnomonic:
		denom := cosDec0 - eta*sinDec0
		ra = ra0 + math.Atan2(xi, denom)
		dec = math.Atan2(sinDec0+eta*cosDec0, math.Hypot(xi, denom))

	case Stereographic:
		rho := math.Hypot(xi, eta)
		if rho == 0 {
			return c
		}
		cAng := 2 * math.Atan(rho/2)
		sinC, cosC := math.Sincos(cAng)

		dec = math.Asin(cosC*sinDec0 + eta*sinC*cosDec0/rho)
		denom := rho*cosDec0*cosC - eta*sinDec0*sinC
		if denom == 0 {
			ra = ra0 + math.Atan2(xi*sinC, denom)
			break
		}
		ra = ra0 + math.Atan(xi*sinC/denom)
		// atan only covers half the circle; when the Dec term points away from
		// the requested y direction the solution is on the far side.
		if denom < 0 {
			ra += math.Pi
		}

	default:
		panic(fmt.Sprintf("astro: unsupported projection %d", int(projection)))
	}

	return NewCoordinates(AngleFromRadians(ra), AngleFromRadians(dec), c.Epoch)
}
