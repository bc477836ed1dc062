// Package geo computes great-circle distances between telemetry fixes.
package geo

import (
	"math"

	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

// EarthRadiusM is the mean Earth radius used by the haversine formula.
const EarthRadiusM = 6371000.0

// Distance returns the haversine distance in meters between two lat/lon
// points given in degrees. NaN inputs propagate.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// BetweenSamples returns the distance between two raw samples. ok is false
// when either sample is missing latitude or longitude.
func BetweenSamples(a, b telemetry.RawSample) (meters float64, ok bool) {
	if !a.HasPosition() || !b.HasPosition() {
		return 0, false
	}
	return Distance(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude), true
}

// PathLength sums the distance along consecutive samples, skipping any pair
// that lacks a position fix.
func PathLength(samples []telemetry.RawSample) float64 {
	var total float64
	for i := 1; i < len(samples); i++ {
		if d, ok := BetweenSamples(samples[i-1], samples[i]); ok {
			total += d
		}
	}
	return total
}
