package geo

import (
	"math"
	"testing"

	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

func TestDistanceSymmetricAndZero(t *testing.T) {
	points := [][2]float64{
		{4.6097, -74.0817},
		{4.6127, -74.0660},
		{-33.4489, -70.6693},
		{51.5074, -0.1278},
		{0, 179.9},
		{0, -179.9},
	}
	for _, a := range points {
		if d := Distance(a[0], a[1], a[0], a[1]); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab := Distance(a[0], a[1], b[0], b[1])
			ba := Distance(b[0], b[1], a[0], a[1])
			if math.Abs(ab-ba) > 1e-6 {
				t.Errorf("Distance(%v, %v) = %v but reversed = %v", a, b, ab, ba)
			}
			if ab < 0 {
				t.Errorf("Distance(%v, %v) = %v, want >= 0", a, b, ab)
			}
		}
	}
}

func TestDistanceKnownValues(t *testing.T) {
	// One degree of latitude along a meridian.
	want := EarthRadiusM * math.Pi / 180
	if got := Distance(0, 0, 1, 0); math.Abs(got-want) > 1e-6 {
		t.Errorf("one degree of latitude = %v, want %v", got, want)
	}

	// Across the antimeridian is short, not half the globe.
	if got := Distance(0, 179.9, 0, -179.9); got >= 25000 {
		t.Errorf("antimeridian crossing = %v m, want < 25000", got)
	}
}

func TestDistanceNaNPropagates(t *testing.T) {
	if got := Distance(math.NaN(), 0, 1, 1); !math.IsNaN(got) {
		t.Errorf("Distance(NaN, ...) = %v, want NaN", got)
	}
}

func TestBetweenSamples(t *testing.T) {
	a := telemetry.RawSample{Latitude: telemetry.Float(4.6097), Longitude: telemetry.Float(-74.0817)}

	tests := []struct {
		name   string
		b      telemetry.RawSample
		want   float64
		wantOK bool
	}{
		{"both fixed", telemetry.RawSample{Latitude: telemetry.Float(4.6107), Longitude: telemetry.Float(-74.0817)}, 111.19, true},
		{"missing longitude", telemetry.RawSample{Latitude: telemetry.Float(1)}, 0, false},
		{"no fix", telemetry.RawSample{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := BetweenSamples(a, tt.b)
			if ok != tt.wantOK {
				t.Fatalf("BetweenSamples ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && math.Abs(d-tt.want) > 0.05 {
				t.Errorf("BetweenSamples = %v, want %v", d, tt.want)
			}
		})
	}
}

func TestPathLengthSkipsMissingFixes(t *testing.T) {
	samples := []telemetry.RawSample{
		{Latitude: telemetry.Float(0), Longitude: telemetry.Float(0)},
		{},
		{Latitude: telemetry.Float(0.001), Longitude: telemetry.Float(0)},
		{Latitude: telemetry.Float(0.002), Longitude: telemetry.Float(0)},
	}
	// Only the last pair has positions on both sides.
	want := Distance(0.001, 0, 0.002, 0)
	if got := PathLength(samples); math.Abs(got-want) > 1e-9 {
		t.Errorf("PathLength = %v, want %v", got, want)
	}
	if got := PathLength(nil); got != 0 {
		t.Errorf("PathLength(nil) = %v, want 0", got)
	}
}
