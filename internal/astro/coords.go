package astro

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/unit"
)

// poleEpsilon is the cos(Dec) below which a position is treated as a pole.
const poleEpsilon = 1e-12

// Epoch identifies the reference frame of equatorial coordinates.
type Epoch int

const (
	// J2000 is the fixed J2000.0 mean equator and equinox.
	J2000 Epoch = iota
	// JNOW is the true equator and equinox of the current date.
	JNOW
)

// String returns the epoch name.
func (e Epoch) String() string {
	switch e {
	case J2000:
		return "J2000"
	case JNOW:
		return "JNOW"
	default:
		return fmt.Sprintf("Epoch(%d)", int(e))
	}
}

// ParseEpoch parses an epoch name (case-insensitive).
func ParseEpoch(s string) (Epoch, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "J2000", "":
		return J2000, nil
	case "JNOW":
		return JNOW, nil
	default:
		return 0, fmt.Errorf("unknown epoch %q", s)
	}
}

func (e Epoch) valid() bool { return e == J2000 || e == JNOW }

// Coordinates is an equatorial RA/Dec position tagged with its epoch.
type Coordinates struct {
	RA    Angle // Right Ascension, [0°, 360°)
	Dec   Angle // Declination, [-90°, 90°]
	Epoch Epoch
}

// NewCoordinates creates Coordinates with RA normalized into [0°, 360°) and
// Dec clamped into [-90°, 90°].
func NewCoordinates(ra, dec Angle, epoch Epoch) Coordinates {
	d := dec.Degrees()
	if d > 90 {
		dec = AngleFromDegrees(90)
	} else if d < -90 {
		dec = AngleFromDegrees(-90)
	}
	return Coordinates{
		RA:    AngleFromDegrees(normalizeDegrees(ra.Degrees())),
		Dec:   dec,
		Epoch: epoch,
	}
}

// String formats the coordinates as "RA hʰmᵐsˢ Dec d°m′s″ (EPOCH)".
func (c Coordinates) String() string {
	return fmt.Sprintf("RA %s Dec %s (%s)", c.RA.HMS(), c.Dec.String(), c.Epoch)
}

// Transform returns c expressed in the target epoch, using the current time as
// the JNOW reference instant.
func (c Coordinates) Transform(target Epoch) Coordinates {
	return c.TransformAt(target, time.Now())
}

// TransformAt returns c expressed in the target epoch with t as the JNOW
// reference instant. Same-epoch transforms return c unchanged. An epoch value
// other than J2000 or JNOW is a configuration fault and panics.
func (c Coordinates) TransformAt(target Epoch, t time.Time) Coordinates {
	if !target.valid() || !c.Epoch.valid() {
		panic(fmt.Sprintf("astro: unsupported epoch transform %s -> %s", c.Epoch, target))
	}
	if c.Epoch == target {
		return c
	}
	if target == JNOW {
		return j2000ToJNow(c, t)
	}
	return jnowToJ2000(c, t)
}

func j2000ToJNow(c Coordinates, t time.Time) Coordinates {
	jd := julian.TimeToJD(t.UTC())
	p := precess.NewPrecessor(2000, base.JDEToJulianYear(jd))
	eq := p.Precess(&coord.Equatorial{
		RA:  unit.RAFromRad(c.RA.Radians()),
		Dec: unit.Angle(c.Dec.Radians()),
	}, &coord.Equatorial{})

	ra, dec := eq.RA.Rad(), eq.Dec.Rad()
	dRA, dDec := nutationOffsets(ra, dec, jd)
	return NewCoordinates(AngleFromRadians(ra+dRA), AngleFromRadians(dec+dDec), JNOW)
}

func jnowToJ2000(c Coordinates, t time.Time) Coordinates {
	jd := julian.TimeToJD(t.UTC())
	ra, dec := c.RA.Radians(), c.Dec.Radians()
	dRA, dDec := nutationOffsets(ra, dec, jd)
	// One refinement step: evaluate the offsets at the mean position.
	dRA, dDec = nutationOffsets(ra-dRA, dec-dDec, jd)

	p := precess.NewPrecessor(base.JDEToJulianYear(jd), 2000)
	eq := p.Precess(&coord.Equatorial{
		RA:  unit.RAFromRad(ra - dRA),
		Dec: unit.Angle(dec - dDec),
	}, &coord.Equatorial{})
	return NewCoordinates(AngleFromRadians(eq.RA.Rad()), AngleFromRadians(eq.Dec.Rad()), J2000)
}

// nutationOffsets returns the nutation corrections in RA and Dec (radians) for
// a mean-of-date position (Meeus eq. 23.1).
func nutationOffsets(ra, dec, jd float64) (dRA, dDec float64) {
	dPsi, dEps := nutation.Nutation(jd)
	eps := nutation.MeanObliquity(jd).Rad() + dEps.Rad()

	sinEps, cosEps := math.Sincos(eps)
	sinRA, cosRA := math.Sincos(ra)
	tanDec := math.Tan(dec)

	dRA = (cosEps+sinEps*sinRA*tanDec)*dPsi.Rad() - cosRA*tanDec*dEps.Rad()
	dDec = sinEps*cosRA*dPsi.Rad() + sinRA*dEps.Rad()
	return dRA, dDec
}

// Sub returns the separation of c from b (c - b). When the epochs differ, b is
// first transformed into c's epoch.
//
// The bearing is measured at b toward c, east of north. At the poles it is
// undefined and reported as 0.
func (c Coordinates) Sub(b Coordinates) Separation {
	if b.Epoch != c.Epoch {
		b = b.Transform(c.Epoch)
	}

	dRA := AngleFromDegrees(normalizeDelta(c.RA.Degrees() - b.RA.Degrees()))
	dDec := c.Dec.Sub(b.Dec)

	d1, d2 := b.Dec.Radians(), c.Dec.Radians()
	cosDist := math.Cos(d2-d1) - math.Cos(d1)*math.Cos(d2)*(1-math.Cos(dRA.Radians()))
	cosDist = math.Max(-1, math.Min(1, cosDist))

	y := math.Sin(dRA.Radians()) * math.Cos(d2)
	x := math.Cos(d1)*math.Sin(d2) - math.Sin(d1)*math.Cos(d2)*math.Cos(dRA.Radians())
	bearing := 0.0
	if math.Abs(math.Cos(d1)) > poleEpsilon && (y != 0 || x != 0) {
		bearing = normalizeDegrees(radToDeg(math.Atan2(y, x)))
	}

	return Separation{
		RA:       dRA,
		Dec:      dDec,
		Distance: AngleFromRadians(math.Acos(cosDist)),
		Bearing:  AngleFromDegrees(bearing),
	}
}

// Separation is the angular offset between two sky positions.
type Separation struct {
	RA       Angle // RA delta, (-180°, 180°]
	Dec      Angle // Dec delta
	Distance Angle // great-circle distance
	Bearing  Angle // position angle, east of north, [0°, 360°)
}

// String formats the separation for logs.
func (s Separation) String() string {
	return fmt.Sprintf("dist %.2f' (dRA %.2f', dDec %.2f', PA %.1f°)",
		s.Distance.ArcMinutes(), s.RA.ArcMinutes(), s.Dec.ArcMinutes(), s.Bearing.Degrees())
}
