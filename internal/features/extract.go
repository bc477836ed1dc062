package features

import (
	"github.com/banshee-data/cablecar.telemetry/internal/geo"
	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

// ExtractSample computes the features of a single raw sample. prev is the
// sensor's previous sample, if any, and distance the distance it had
// accumulated so far; the leg from prev to sample is added when both carry a
// position fix.
func (e *Extractor) ExtractSample(sample telemetry.RawSample, prev *telemetry.RawSample, distance float64) FeatureSet {
	if prev != nil {
		if d, ok := geo.BetweenSamples(*prev, sample); ok {
			distance += d
		}
	}
	return e.extract([]telemetry.RawSample{sample}, sample.SpeedKmh, distance)
}

// ExtractWindow computes the features of a chronologically ordered window.
// prev and distance carry the sensor's context from the preceding window.
// It returns false only for an empty window.
func (e *Extractor) ExtractWindow(samples []telemetry.RawSample, prev *telemetry.RawSample, distance float64) (FeatureSet, bool) {
	if len(samples) == 0 {
		return FeatureSet{}, false
	}
	if prev != nil {
		if d, ok := geo.BetweenSamples(*prev, samples[0]); ok {
			distance += d
		}
	}
	distance += geo.PathLength(samples)

	var speedSum float64
	for _, s := range samples {
		speedSum += s.SpeedKmh
	}
	return e.extract(samples, speedSum/float64(len(samples)), distance), true
}

// extract stamps the FeatureSet with the last sample's identity and position.
func (e *Extractor) extract(samples []telemetry.RawSample, velocityKmh, distance float64) FeatureSet {
	last := samples[len(samples)-1]

	sig := SelectSignal(samples)
	axes := e.resolve(sig, velocityKmh)
	vib, spec := e.Analyze(axes, velocityKmh)

	return FeatureSet{
		SensorID:    last.SensorID,
		Timestamp:   last.Timestamp,
		Latitude:    last.Latitude,
		Longitude:   last.Longitude,
		Altitude:    last.Altitude,
		VelocityMps: units.KmhToMps(velocityKmh),
		VelocityKmh: velocityKmh,
		DistanceM:   distance,
		PositionM:   last.PositionM,
		Vibration:   vib,
		Spectral:    spec,
		Strategy:    sig.Strategy,
		Samples:     axes.Len(),
	}
}
