// Package state labels each measurement with the operational phase of the
// cable car, derived from speed and along-track position.
//
// Classification is stateless: every sample is evaluated on its own, so a
// noisy speed reading can move the label back and forth between phases.
package state

import "github.com/banshee-data/cablecar.telemetry/internal/units"

// Operational state labels, as stored in measurements.
const (
	Stopped        = "parado"
	SlowZone       = "zona_lenta"
	Start          = "inicio"
	Cruise         = "crucero"
	Braking        = "frenado"
	Reacceleration = "reaceleracion"
	Transition     = "transicion"
	Unknown        = "desconocido"
)

// DefaultTrackLengthM is the length of the line in meters.
const DefaultTrackLengthM = 18200.0

// Thresholds of the rule table. Speeds are km/h, distances meters.
const (
	stoppedBelowKmh = 1.0
	slowBelowKmh    = 5.0
	startBelowKmh   = 15.0
	startZoneM      = 1000.0
	cruiseMinKmh    = 24.0
	cruiseMaxKmh    = 26.0
	brakingZoneM    = 450.0
	brakingAboveKmh = 15.0
	reaccelAboveKmh = 26.0
)

// Labels lists every label Classify can return.
var Labels = []string{Stopped, SlowZone, Start, Cruise, Braking, Reacceleration, Transition, Unknown}

// Classify maps a speed and along-track position to a state label. Rules
// are evaluated in order and the first match wins. A non-positive
// totalTrackM uses DefaultTrackLengthM.
func Classify(velocityKmh, alongTrackM, totalTrackM float64) string {
	if totalTrackM <= 0 {
		totalTrackM = DefaultTrackLengthM
	}
	brakingStart := totalTrackM - brakingZoneM

	switch {
	case velocityKmh < stoppedBelowKmh:
		return Stopped
	case velocityKmh < slowBelowKmh:
		return SlowZone
	case velocityKmh < startBelowKmh && alongTrackM < startZoneM:
		return Start
	case velocityKmh >= cruiseMinKmh && velocityKmh <= cruiseMaxKmh &&
		alongTrackM >= startZoneM && alongTrackM <= brakingStart:
		return Cruise
	case velocityKmh > brakingAboveKmh && alongTrackM >= brakingStart:
		return Braking
	case velocityKmh > reaccelAboveKmh:
		return Reacceleration
	}
	return Transition
}

// Input carries the optional readings available for one classification.
type Input struct {
	VelocityKmh *float64
	// PositionM is the along-track position reported by the sensor.
	PositionM *float64
	// DistanceM is the accumulated travelled distance, used as a position
	// proxy when PositionM is absent.
	DistanceM *float64
	// History holds recent speeds (km/h) of the same sensor, oldest first.
	History []float64
}

// Classifier applies Classify with a configured track length.
type Classifier struct {
	TrackLengthM float64
}

// NewClassifier returns a classifier for a line of trackLengthM meters.
func NewClassifier(trackLengthM float64) *Classifier {
	if trackLengthM <= 0 {
		trackLengthM = DefaultTrackLengthM
	}
	return &Classifier{TrackLengthM: trackLengthM}
}

// ClassifyInput resolves the position (reported, else accumulated distance)
// and speed (current reading averaged with any history) before applying the
// rule table. Without a speed or any position it returns Unknown.
func (c *Classifier) ClassifyInput(in Input) string {
	if in.VelocityKmh == nil || !units.IsFinite(*in.VelocityKmh) {
		return Unknown
	}

	var position float64
	switch {
	case in.PositionM != nil && units.IsFinite(*in.PositionM):
		position = *in.PositionM
	case in.DistanceM != nil && units.IsFinite(*in.DistanceM):
		position = *in.DistanceM
	default:
		return Unknown
	}

	velocity := *in.VelocityKmh
	if len(in.History) > 0 {
		sum := velocity
		for _, v := range in.History {
			sum += v
		}
		velocity = sum / float64(len(in.History)+1)
	}
	return Classify(velocity, position, c.TrackLengthM)
}

// ClassifyKmh classifies a single reading. The speed must be the km/h value
// as measured: a value recovered from m/s can land a rounding step past a
// threshold (15/3.6*3.6 > 15).
func (c *Classifier) ClassifyKmh(velocityKmh float64, positionM, distanceM *float64) string {
	return c.ClassifyInput(Input{VelocityKmh: &velocityKmh, PositionM: positionM, DistanceM: distanceM})
}
