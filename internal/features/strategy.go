package features

import (
	"math"

	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

// minSignalLevel separates real vibration from zeros and rounding noise.
const minSignalLevel = 1e-6

// Strategy names how the vibration series of a FeatureSet was obtained.
type Strategy int

const (
	// RealSignal uses the 3-axis vibration reported by the sensor.
	RealSignal Strategy = iota
	// SyntheticFromPartialAxes generates a signal scaled to the magnitude of
	// the axes that were reported.
	SyntheticFromPartialAxes
	// SyntheticFromVelocityOnly generates a signal scaled from speed alone.
	SyntheticFromVelocityOnly
)

func (s Strategy) String() string {
	switch s {
	case RealSignal:
		return "real"
	case SyntheticFromPartialAxes:
		return "synthetic_partial_axes"
	case SyntheticFromVelocityOnly:
		return "synthetic_velocity"
	}
	return "unknown"
}

// Signal is the outcome of SelectSignal.
type Signal struct {
	Strategy Strategy
	// Axes is populated for RealSignal.
	Axes Axes
	// TargetRMS is populated for SyntheticFromPartialAxes.
	TargetRMS float64
}

// SelectSignal decides how to obtain a vibration series for samples:
//
//   - samples with all three axes and non-negligible energy are used as is;
//   - otherwise any reported axes give a target RMS of mean magnitude/√2;
//   - otherwise the series will be derived from speed alone.
func SelectSignal(samples []telemetry.RawSample) Signal {
	var axes Axes
	var magSum float64
	var magCount int
	for _, s := range samples {
		if s.HasAllAxes() {
			axes[0] = append(axes[0], *s.VibrationX)
			axes[1] = append(axes[1], *s.VibrationY)
			axes[2] = append(axes[2], *s.VibrationZ)
		}
		if s.HasAnyAxis() {
			magSum += s.VectorMagnitude()
			magCount++
		}
	}

	if axes.Len() > 0 && axes.MaxAbs() > minSignalLevel {
		return Signal{Strategy: RealSignal, Axes: axes}
	}
	if magCount > 0 {
		if mean := magSum / float64(magCount); mean > minSignalLevel {
			return Signal{Strategy: SyntheticFromPartialAxes, TargetRMS: mean / math.Sqrt2}
		}
	}
	return Signal{Strategy: SyntheticFromVelocityOnly}
}

// resolve turns a Signal into the matrix handed to Analyze.
func (e *Extractor) resolve(sig Signal, velocityKmh float64) Axes {
	switch sig.Strategy {
	case RealSignal:
		return sig.Axes
	case SyntheticFromPartialAxes:
		return SynthesizeAxes(e.opts.SyntheticSamples, velocityKmh, sig.TargetRMS, e.opts.SampleRateHz)
	default:
		return SynthesizeAxes(e.opts.SyntheticSamples, velocityKmh, VelocityTargetRMS(velocityKmh), e.opts.SampleRateHz)
	}
}
