package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

const (
	// minSpectralSamples is the shortest series analysed with an FFT.
	minSpectralSamples = 6
	// noiseFloorRatio suppresses bins below this fraction of the peak bin.
	noiseFloorRatio = 0.01
	// minSpectralEnergy marks a spectrum as degenerate.
	minSpectralEnergy = 1e-6
	// minBandEnergy floors FFT band energies so consumers never divide by zero.
	minBandEnergy = 1e-6
	// minSyntheticBandEnergy floors the analytic fallback bands.
	minSyntheticBandEnergy = 0.01
)

// Band edges in Hz: [0,50), [50,200), [200,∞).
const (
	lowBandEdgeHz = 50.0
	midBandEdgeHz = 200.0
)

// spectrum analyses the magnitude series with a real FFT. ok is false when
// the series is too short or carries no spectral energy.
func spectrum(mag []float64, sampleRateHz float64) (Spectral, bool) {
	n := len(mag)
	if n < minSpectralSamples {
		return Spectral{}, false
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, mag)
	amps := make([]float64, len(coeffs))
	norm := math.Sqrt(float64(n))
	for k, c := range coeffs {
		amps[k] = cmplx.Abs(c) / norm
	}

	peak := floats.Max(amps)
	floor := peak * noiseFloorRatio
	for k, a := range amps {
		if a < floor {
			amps[k] = 0
		}
	}

	var (
		bands               [3]float64
		weighted, weightSum float64
		dominantAmp         float64
		dominantHz          float64
	)
	for k, a := range amps {
		hz := fft.Freq(k) * sampleRateHz
		switch {
		case hz < lowBandEdgeHz:
			bands[0] += a * a
		case hz < midBandEdgeHz:
			bands[1] += a * a
		default:
			bands[2] += a * a
		}
		if k == 0 || a <= 0 {
			continue
		}
		weighted += hz * a
		weightSum += a
		if a > dominantAmp {
			dominantAmp = a
			dominantHz = hz
		}
	}
	if bands[0]+bands[1]+bands[2] < minSpectralEnergy {
		return Spectral{}, false
	}

	s := Spectral{
		DominantFrequency:     units.NormalizeHz(dominantHz, sampleRateHz),
		PeakSpectralAmplitude: peak,
		BandEnergy1:           math.Max(bands[0], minBandEnergy),
		BandEnergy2:           math.Max(bands[1], minBandEnergy),
		BandEnergy3:           math.Max(bands[2], minBandEnergy),
	}
	if weightSum > 0 {
		s.MeanFrequency = units.NormalizeHz(weighted/weightSum, sampleRateHz)
	}
	return s, true
}

// SyntheticSpectrum is the analytic spectral profile used when a series is
// too short or degenerate for an FFT. Frequencies grow linearly with speed
// and energy shifts towards the higher bands as the car accelerates. The
// total energy is rms²·n, split across the three bands.
func SyntheticSpectrum(rms, velocityKmh float64, n int, sampleRateHz float64) Spectral {
	v := math.Max(velocityKmh, 0)

	meanHz := units.Clamp(10+1.4*v, 5, 240)
	dominantHz := units.Clamp(meanHz+0.6*v, 5, 260)
	amplitude := math.Max(rms, 0.05) * (1.02 + v/90)

	low := units.Clamp(0.58-v/90, 0.1, 0.7)
	mid := units.Clamp(0.32+v/140, 0.15, 0.5)
	high := units.Clamp(1-low-mid, 0.1, 0.4)
	sum := low + mid + high

	total := rms * rms * float64(n)
	return Spectral{
		MeanFrequency:         units.NormalizeHz(meanHz, sampleRateHz),
		DominantFrequency:     units.NormalizeHz(dominantHz, sampleRateHz),
		PeakSpectralAmplitude: amplitude,
		BandEnergy1:           math.Max(total*low/sum, minSyntheticBandEnergy),
		BandEnergy2:           math.Max(total*mid/sum, minSyntheticBandEnergy),
		BandEnergy3:           math.Max(total*high/sum, minSyntheticBandEnergy),
	}
}
