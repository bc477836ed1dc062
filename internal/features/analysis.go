package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

// Crest factor bounds applied after computing peak/rms.
const (
	MinCrestFactor = 1.0
	MaxCrestFactor = 6.5
)

// varianceEpsilon treats rounding noise around a constant series as zero
// variance.
const varianceEpsilon = 1e-18

// Axes is a 3×N matrix of per-axis vibration samples (x, y, z).
type Axes [3][]float64

// Len returns N, the number of complete samples across the three axes.
func (a Axes) Len() int {
	n := len(a[0])
	for _, axis := range a[1:] {
		if len(axis) < n {
			n = len(axis)
		}
	}
	return n
}

// Magnitude returns the per-sample Euclidean norm across the axes.
func (a Axes) Magnitude() []float64 {
	n := a.Len()
	mag := make([]float64, n)
	for i := 0; i < n; i++ {
		mag[i] = math.Sqrt(a[0][i]*a[0][i] + a[1][i]*a[1][i] + a[2][i]*a[2][i])
	}
	return mag
}

// MaxAbs returns the largest absolute value over every axis.
func (a Axes) MaxAbs() float64 {
	var m float64
	for _, axis := range a {
		for _, v := range axis {
			m = math.Max(m, math.Abs(v))
		}
	}
	return m
}

// Analyze runs the shared pipeline over a 3×N vibration matrix: time-domain
// metrics of the magnitude series, then its spectrum. Short or degenerate
// series fall back to the analytic profile of SyntheticSpectrum.
func (e *Extractor) Analyze(axes Axes, velocityKmh float64) (Vibration, Spectral) {
	mag := axes.Magnitude()
	vib := vibrationMetrics(mag)

	spec, ok := spectrum(mag, e.opts.SampleRateHz)
	if !ok {
		spec = SyntheticSpectrum(vib.RMS, velocityKmh, len(mag), e.opts.SampleRateHz)
	}
	return sanitize(vib, spec)
}

func vibrationMetrics(mag []float64) Vibration {
	var v Vibration
	n := len(mag)
	if n == 0 {
		v.CrestFactor = MinCrestFactor
		return v
	}

	v.RMS = math.Sqrt(floats.Dot(mag, mag) / float64(n))
	for _, m := range mag {
		v.Peak = math.Max(v.Peak, math.Abs(m))
	}
	if v.RMS > 0 {
		v.CrestFactor = v.Peak / v.RMS
	}
	v.CrestFactor = units.Clamp(v.CrestFactor, MinCrestFactor, MaxCrestFactor)

	mean := stat.Mean(mag, nil)
	variance := stat.MomentAbout(2, mag, mean, nil)
	if variance <= varianceEpsilon {
		return v
	}
	v.Skewness = stat.MomentAbout(3, mag, mean, nil) / math.Pow(variance, 1.5)
	v.Kurtosis = stat.MomentAbout(4, mag, mean, nil)/(variance*variance) - 3

	var crossings int
	prev := sign(mag[0] - mean)
	for _, m := range mag[1:] {
		s := sign(m - mean)
		if s != prev {
			crossings++
		}
		prev = s
	}
	v.ZCR = float64(crossings) / float64(n)
	return v
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
