package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	syntheticPhases  = [3]float64{0, 2 * math.Pi / 3, 4 * math.Pi / 3}
	syntheticWeights = [3]float64{0.95, 0.85, 1.05}
)

// SyntheticFrequencyHz is the fundamental of generated vibration at speed v.
func SyntheticFrequencyHz(velocityKmh float64) float64 {
	return 5 + 0.6*math.Max(velocityKmh, 0)
}

// VelocityTargetRMS is the vibration intensity assumed when only speed is
// known.
func VelocityTargetRMS(velocityKmh float64) float64 {
	return 0.12 + 0.015*math.Max(velocityKmh, 0)
}

// SynthesizeAxes builds n samples of a three-phase sinusoid (0°, 120°, 240°)
// at SyntheticFrequencyHz, weighted per axis and rescaled so the RMS of the
// magnitude equals targetRMS.
func SynthesizeAxes(n int, velocityKmh, targetRMS, sampleRateHz float64) Axes {
	var axes Axes
	if n <= 0 {
		return axes
	}
	freq := SyntheticFrequencyHz(velocityKmh)
	for k := range axes {
		axes[k] = make([]float64, n)
		for i := range axes[k] {
			t := float64(i) / sampleRateHz
			axes[k][i] = syntheticWeights[k] * math.Sin(2*math.Pi*freq*t+syntheticPhases[k])
		}
	}

	mag := axes.Magnitude()
	rms := math.Sqrt(floats.Dot(mag, mag) / float64(n))
	if rms > 0 {
		for k := range axes {
			floats.Scale(targetRMS/rms, axes[k])
		}
	}
	return axes
}
