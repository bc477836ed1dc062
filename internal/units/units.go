// Package units provides the unit conversions shared by feature extraction
// and storage. Raw telemetry reports speed in km/h; measurements store m/s.
package units

import "math"

// Unit constants
const (
	MPS  = "mps"
	KMPH = "kmph"
	KPH  = "kph"
)

// NominalSampleRateHz is the accelerometer rate assumed when converting FFT
// bins to Hz and when normalising stored frequencies.
const NominalSampleRateHz = 1000.0

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// KmhToMps converts km/h to m/s.
func KmhToMps(kmh float64) float64 {
	return kmh / 3.6
}

// MpsToKmh converts m/s to km/h.
func MpsToKmh(mps float64) float64 {
	return mps * 3.6
}

// NormalizeHz expresses a frequency in Hz as a fraction of the sample rate.
// A non-positive rate falls back to NominalSampleRateHz.
func NormalizeHz(hz, sampleRateHz float64) float64 {
	if sampleRateHz <= 0 {
		sampleRateHz = NominalSampleRateHz
	}
	return hz / sampleRateHz
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteOr returns v when finite, otherwise fallback.
func FiniteOr(v, fallback float64) float64 {
	if IsFinite(v) {
		return v
	}
	return fallback
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
