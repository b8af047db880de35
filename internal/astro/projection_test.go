package astro

import (
	"math"
	"testing"
)

func TestShift_ZeroIsIdentity(t *testing.T) {
	center := coordsDeg(150, 10, J2000)
	for _, p := range []Projection{Gnomonic, Stereographic} {
		t.Run(p.String(), func(t *testing.T) {
			got := center.Shift(0, 0, 33, 1.2, 1.2, p)
			if center.Sub(got).Distance.ArcSeconds() > 1e-6 {
				t.Errorf("zero shift moved the center to %v", got)
			}
			if got.Epoch != center.Epoch {
				t.Errorf("Epoch = %v, want %v", got.Epoch, center.Epoch)
			}
		})
	}
}

func TestShift_AlongMeridian(t *testing.T) {
	// -3600 px in y at 1"/px is one degree toward north.
	center := coordsDeg(150, 10, J2000)

	tests := []struct {
		projection Projection
		wantDec    float64
	}{
		{Gnomonic, 10 + radToDeg(math.Atan(degToRad(1)))},
		{Stereographic, 10 + radToDeg(2*math.Atan(degToRad(1)/2))},
	}

	for _, tt := range tests {
		t.Run(tt.projection.String(), func(t *testing.T) {
			got := center.Shift(0, -3600, 0, 1, 1, tt.projection)
			if math.Abs(got.Dec.Degrees()-tt.wantDec) > 1e-9 {
				t.Errorf("Dec = %.10f, want %.10f", got.Dec.Degrees(), tt.wantDec)
			}
			if math.Abs(got.RA.Degrees()-150) > 1e-9 {
				t.Errorf("RA = %v, want 150", got.RA.Degrees())
			}
		})
	}
}

func TestShift_ProjectionsAgreeForSmallOffsets(t *testing.T) {
	center := coordsDeg(83.8, -5.4, J2000)

	for _, d := range [][2]float64{{100, 0}, {0, 100}, {-250, 75}, {300, -300}} {
		g := center.Shift(d[0], d[1], 12, 1.5, 1.5, Gnomonic)
		s := center.Shift(d[0], d[1], 12, 1.5, 1.5, Stereographic)
		if diff := g.Sub(s).Distance.ArcSeconds(); diff > 0.01 {
			t.Errorf("delta %v: gnomonic and stereographic differ by %.4f\"", d, diff)
		}

		wantDist := math.Hypot(d[0], d[1]) * 1.5
		if dist := g.Sub(center).Distance.ArcSeconds(); math.Abs(dist-wantDist) > 0.05 {
			t.Errorf("delta %v: distance = %.3f\", want %.3f\"", d, dist, wantDist)
		}
	}
}

func TestShift_DirectionAndRotation(t *testing.T) {
	center := coordsDeg(150, 0, J2000)

	// Unrotated +x is west, i.e. decreasing RA.
	west := center.Shift(600, 0, 0, 1, 1, Gnomonic)
	if west.RA.Degrees() >= 150 {
		t.Errorf("+x shift RA = %v, want < 150", west.RA.Degrees())
	}

	// Rotating the image by 90° turns the same pixel delta into a Dec offset.
	rotated := center.Shift(600, 0, 90, 1, 1, Gnomonic)
	if math.Abs(rotated.RA.Degrees()-150) > 1e-6 {
		t.Errorf("rotated RA = %v, want 150", rotated.RA.Degrees())
	}
	if math.Abs(math.Abs(rotated.Dec.Degrees())-600.0/3600) > 1e-4 {
		t.Errorf("rotated |Dec| = %v, want %v", math.Abs(rotated.Dec.Degrees()), 600.0/3600)
	}
}

func TestShift_WrapsRA(t *testing.T) {
	center := coordsDeg(0.01, 0, J2000)
	got := center.Shift(3600, 0, 0, 1, 1, Stereographic)
	if got.RA.Degrees() < 0 || got.RA.Degrees() >= 360 {
		t.Fatalf("RA = %v, want within [0, 360)", got.RA.Degrees())
	}
	if got.RA.Degrees() < 358 {
		t.Errorf("RA = %v, want just below 360", got.RA.Degrees())
	}
}

func TestShift_PixelScaleAxes(t *testing.T) {
	center := coordsDeg(150, 20, J2000)
	a := center.Shift(0, 100, 0, 1, 2, Gnomonic)
	b := center.Shift(0, 200, 0, 1, 1, Gnomonic)
	if a.Sub(b).Distance.ArcSeconds() > 1e-6 {
		t.Errorf("scaleY not applied to deltaY: %v vs %v", a, b)
	}
}

func TestParseProjection(t *testing.T) {
	tests := []struct {
		input   string
		want    Projection
		wantErr bool
	}{
		{"gnomonic", Gnomonic, false},
		{"TAN", Gnomonic, false},
		{"stereographic", Stereographic, false},
		{"stg", Stereographic, false},
		{"mercator", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseProjection(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseProjection(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Errorf("ParseProjection(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}
