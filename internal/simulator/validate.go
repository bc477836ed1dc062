package simulator

import (
	"math"

	"github.com/banshee-data/cablecar.telemetry/internal/features"
	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

const (
	// velocityToleranceMps is the largest accepted drift from the raw speed.
	velocityToleranceMps = 1.5
	// minRMSTolerance and relRMSTolerance bound the accepted RMS drift:
	// max(minRMSTolerance, relRMSTolerance·expected).
	minRMSTolerance = 0.3
	relRMSTolerance = 0.4
	// minReferenceRMS is the smallest raw vibration treated as a reference.
	minReferenceRMS = 1e-6
)

// Validate checks extracted metrics against the raw sample they came from
// and pulls drifted values back:
//
//   - velocity more than 1.5 m/s from speed_kmh/3.6 is replaced, and the
//     km/h speed it is classified on reset to speed_kmh;
//   - RMS outside max(0.3, 0.4·expected) of the raw vibration magnitude is
//     replaced and peak raised to at least that magnitude;
//   - crest factor is clamped to [1, 6.5];
//   - non-finite kurtosis and skewness become 0;
//   - band energies are floored at 0.
//
// The RMS check needs a reference. When the raw sample carries no vibration,
// or only zero axes, the raw magnitude is 0 and says nothing about the
// signal that was synthesised in its place, so the check is skipped and the
// synthesised RMS is kept rather than being forced to 0. The remaining
// clamps still apply.
func Validate(raw telemetry.RawSample, fs features.FeatureSet) features.FeatureSet {
	expectedV := units.KmhToMps(raw.SpeedKmh)
	if !units.IsFinite(fs.VelocityMps) || math.Abs(fs.VelocityMps-expectedV) > velocityToleranceMps {
		fs.VelocityMps = expectedV
		fs.VelocityKmh = raw.SpeedKmh
	}

	v := &fs.Vibration
	if raw.HasAnyAxis() {
		expectedRMS := raw.VectorMagnitude()
		tolerance := math.Max(minRMSTolerance, relRMSTolerance*expectedRMS)
		if expectedRMS > minReferenceRMS &&
			(!units.IsFinite(v.RMS) || math.Abs(v.RMS-expectedRMS) > tolerance) {
			v.RMS = expectedRMS
			v.Peak = math.Max(units.FiniteOr(v.Peak, 0), expectedRMS)
			v.CrestFactor = v.Peak / v.RMS
		}
	}
	v.CrestFactor = units.Clamp(units.FiniteOr(v.CrestFactor, features.MinCrestFactor),
		features.MinCrestFactor, features.MaxCrestFactor)
	v.Kurtosis = units.FiniteOr(v.Kurtosis, 0)
	v.Skewness = units.FiniteOr(v.Skewness, 0)

	sp := &fs.Spectral
	sp.BandEnergy1 = math.Max(units.FiniteOr(sp.BandEnergy1, 0), 0)
	sp.BandEnergy2 = math.Max(units.FiniteOr(sp.BandEnergy2, 0), 0)
	sp.BandEnergy3 = math.Max(units.FiniteOr(sp.BandEnergy3, 0), 0)
	return fs
}
