// Package features derives vibration and spectral metrics from raw cable-car
// telemetry, either over a window of samples or for a single sample.
//
// When a sensor reports no usable 3-axis vibration the extractor synthesises
// a plausible signal from whatever is available (partial axes, or speed
// alone). The same analysis runs over real and synthetic signals so both
// paths stay numerically comparable.
package features

import (
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

// Vibration holds the time-domain metrics of the vibration magnitude.
type Vibration struct {
	RMS         float64 `json:"rms"`
	Peak        float64 `json:"peak"`
	CrestFactor float64 `json:"crest_factor"`
	Kurtosis    float64 `json:"kurtosis"`
	Skewness    float64 `json:"skewness"`
	ZCR         float64 `json:"zcr"`
}

// Spectral holds the frequency-domain metrics. Frequencies are expressed as
// a fraction of the nominal sample rate (Hz/1000 by default).
type Spectral struct {
	MeanFrequency         float64 `json:"mean_frequency"`
	DominantFrequency     float64 `json:"dominant_frequency"`
	PeakSpectralAmplitude float64 `json:"peak_spectral_amplitude"`
	BandEnergy1           float64 `json:"band_energy_1"`
	BandEnergy2           float64 `json:"band_energy_2"`
	BandEnergy3           float64 `json:"band_energy_3"`
}

// FeatureSet is the result of extracting one sample or one window.
type FeatureSet struct {
	SensorID  string    `json:"sensor_id"`
	Timestamp time.Time `json:"timestamp"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`

	VelocityMps float64 `json:"velocity_mps"`
	// DistanceM is the cumulative distance travelled by the sensor.
	DistanceM float64  `json:"distance_m"`
	PositionM *float64 `json:"position_m,omitempty"`

	Vibration Vibration `json:"vibration"`
	Spectral  Spectral  `json:"spectral"`
	State     string    `json:"state"`

	// VelocityKmh is the speed the velocity was derived from. States are
	// classified on it so km/h thresholds are not perturbed by unit
	// conversion. It is not persisted.
	VelocityKmh float64 `json:"-"`

	// Strategy and Samples describe how the vibration series was obtained.
	// They are not persisted.
	Strategy Strategy `json:"-"`
	Samples  int      `json:"-"`
}

// Options configures an Extractor.
type Options struct {
	// SampleRateHz is the nominal accelerometer rate used to convert FFT
	// bins to Hz and to normalise stored frequencies.
	SampleRateHz float64
	// SyntheticSamples is the length of generated vibration series.
	SyntheticSamples int
}

// DefaultOptions returns the production extractor settings.
func DefaultOptions() Options {
	return Options{
		SampleRateHz:     units.NominalSampleRateHz,
		SyntheticSamples: 64,
	}
}

// Extractor computes FeatureSets. It holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	opts Options
}

// NewExtractor returns an Extractor, filling zero options with defaults.
func NewExtractor(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.SampleRateHz <= 0 {
		opts.SampleRateHz = def.SampleRateHz
	}
	if opts.SyntheticSamples < minSpectralSamples {
		opts.SyntheticSamples = def.SyntheticSamples
	}
	return &Extractor{opts: opts}
}

// Options returns the effective extractor options.
func (e *Extractor) Options() Options {
	return e.opts
}

// sanitize replaces non-finite metrics with zero.
func sanitize(v Vibration, s Spectral) (Vibration, Spectral) {
	for _, f := range []*float64{&v.RMS, &v.Peak, &v.CrestFactor, &v.Kurtosis, &v.Skewness, &v.ZCR,
		&s.MeanFrequency, &s.DominantFrequency, &s.PeakSpectralAmplitude,
		&s.BandEnergy1, &s.BandEnergy2, &s.BandEnergy3} {
		*f = units.FiniteOr(*f, 0)
	}
	return v, s
}
