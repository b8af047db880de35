package astro

import (
	"math"
	"testing"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

func testObserver() Observer {
	return Observer{
		Latitude:  AngleFromDegrees(35.0),
		Longitude: AngleFromDegrees(-117.0),
		Elevation: 1000,
		DeltaUT1:  -0.1,
	}
}

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{"J2000 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"Unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 2440587.5},
		{"2024-01-01 00:00 UTC", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2460310.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := julianDate(tt.time); math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("julianDate() = %v, want %v", got, tt.expected)
			}
		})
	}

	// Same reference as meeus.
	now := time.Date(2026, 10, 15, 3, 4, 5, 0, time.UTC)
	if julianDate(now) != julian.TimeToJD(now) {
		t.Error("julianDate disagrees with meeus julian.TimeToJD")
	}
}

func TestGreenwichMeanSiderealTime(t *testing.T) {
	gmst := greenwichMeanSiderealTime(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(gmst-280.46) > 0.1 {
		t.Errorf("GMST at J2000 = %v, want ~280.46", gmst)
	}

	// Meeus example 12.a: 1987 April 10, 0h UT -> 13h10m46.3668s.
	gmst = greenwichMeanSiderealTime(time.Date(1987, 4, 10, 0, 0, 0, 0, time.UTC))
	want := (13 + 10.0/60 + 46.3668/3600) * 15
	if math.Abs(gmst-want) > 1e-4 {
		t.Errorf("GMST 1987-04-10 = %v, want %v", gmst, want)
	}
}

func TestLocalSiderealTime(t *testing.T) {
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	greenwich := Observer{}
	east := Observer{Longitude: AngleFromDegrees(90)}

	lst0 := LocalSiderealTime(greenwich, at).Degrees()
	lst90 := LocalSiderealTime(east, at).Degrees()
	if math.Abs(normalizeDelta(lst90-lst0)-90) > 1e-9 {
		t.Errorf("LST(90E) - LST(0) = %v, want 90", lst90-lst0)
	}

	// One second of ΔUT1 advances sidereal time by ~15.04".
	late := Observer{DeltaUT1: 1}
	diff := normalizeDelta(LocalSiderealTime(late, at).Degrees()-lst0) * 3600
	if math.Abs(diff-15.04) > 0.05 {
		t.Errorf("ΔUT1=1s shifts LST by %.3f\", want ~15.04\"", diff)
	}
}

func TestTopocentric_ZenithAndMeridian(t *testing.T) {
	obs := testObserver()
	at := time.Date(2024, 6, 15, 6, 0, 0, 0, time.UTC)
	lst := LocalSiderealTime(obs, at)

	// A JNOW position on the meridian at Dec = latitude is at the zenith.
	zenith := NewCoordinates(lst, obs.Latitude, JNOW).TopocentricAt(obs, at)
	if math.Abs(zenith.Altitude.Degrees()-90) > 1e-6 {
		t.Errorf("zenith altitude = %v, want 90", zenith.Altitude.Degrees())
	}

	// South of the zenith on the meridian: azimuth 180, altitude 90 - (lat - dec).
	south := NewCoordinates(lst, AngleFromDegrees(0), JNOW).TopocentricAt(obs, at)
	if math.Abs(south.Azimuth.Degrees()-180) > 1e-6 {
		t.Errorf("meridian azimuth = %v, want 180", south.Azimuth.Degrees())
	}
	if math.Abs(south.Altitude.Degrees()-55) > 1e-6 {
		t.Errorf("meridian altitude = %v, want 55", south.Altitude.Degrees())
	}

	if south.Latitude() != obs.Latitude || south.Longitude() != obs.Longitude {
		t.Error("observer location not carried on the result")
	}
}

func TestTopocentric_Polaris(t *testing.T) {
	polaris := NewCoordinates(AngleFromDegrees(37.954), AngleFromDegrees(89.264), J2000)
	obs := testObserver()

	for h := 0; h < 24; h += 6 {
		at := time.Date(2024, 6, 15, h, 0, 0, 0, time.UTC)
		tc := polaris.TopocentricAt(obs, at)
		if math.Abs(tc.Altitude.Degrees()-obs.Latitude.Degrees()) > 1.5 {
			t.Errorf("%02dh: Polaris altitude = %v, want ~%v", h, tc.Altitude.Degrees(), obs.Latitude.Degrees())
		}
		az := normalizeDelta(tc.Azimuth.Degrees())
		if math.Abs(az) > 2 {
			t.Errorf("%02dh: Polaris azimuth = %v, want ~0", h, tc.Azimuth.Degrees())
		}
	}
}

func TestTopocentric_IgnoresElevation(t *testing.T) {
	c := NewCoordinates(AngleFromHours(5.5), AngleFromDegrees(-5), J2000)
	at := time.Date(2025, 1, 15, 4, 0, 0, 0, time.UTC)

	low := testObserver()
	low.Elevation = 0
	high := testObserver()
	high.Elevation = 4200

	a, b := c.TopocentricAt(low, at), c.TopocentricAt(high, at)
	if a.Azimuth.Degrees() != b.Azimuth.Degrees() || a.Altitude.Degrees() != b.Altitude.Degrees() {
		t.Errorf("elevation changed the result: %v vs %v", a, b)
	}
}

func TestTopocentric_RoundTrip(t *testing.T) {
	obs := testObserver()
	at := time.Date(2025, 3, 20, 4, 30, 0, 0, time.UTC)

	for _, c := range []Coordinates{
		coordsDeg(150, 10, J2000),
		coordsDeg(10, 60, J2000),
		coordsDeg(280, -20, J2000),
		coordsDeg(45, 30, JNOW),
	} {
		tc := c.TopocentricAt(obs, at)
		back := tc.Transform(c.Epoch)
		if back.Epoch != c.Epoch {
			t.Errorf("Epoch = %v, want %v", back.Epoch, c.Epoch)
		}
		if d := c.Sub(back).Distance.ArcSeconds(); d > 0.01 {
			t.Errorf("%v: topocentric round trip off by %.4f\"", c, d)
		}
	}
}
