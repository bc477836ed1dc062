// Package telemetry defines the raw cable-car sensor reading consumed by the
// feature pipeline and the replay simulator.
package telemetry

import (
	"math"
	"sort"
	"strings"
	"time"
)

// RawSample is one sensor reading as stored by the ingestion service.
// Optional columns are pointers; nil means the sensor did not report it.
type RawSample struct {
	RawID       int64
	SensorID    string
	Timestamp   time.Time
	CabinNumber *int64
	CabinCode   *string

	Latitude  *float64
	Longitude *float64
	Altitude  *float64

	SpeedKmh     float64
	Acceleration *float64
	Temperature  *float64

	VibrationX *float64
	VibrationY *float64
	VibrationZ *float64

	Direction *string
	// PositionM is the along-track position in meters, when known.
	PositionM *float64
}

// HasPosition reports whether both latitude and longitude are present.
func (s RawSample) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Axes returns the three vibration axes; absent axes are nil.
func (s RawSample) Axes() [3]*float64 {
	return [3]*float64{s.VibrationX, s.VibrationY, s.VibrationZ}
}

// HasAllAxes reports whether x, y and z are all present.
func (s RawSample) HasAllAxes() bool {
	return s.VibrationX != nil && s.VibrationY != nil && s.VibrationZ != nil
}

// HasAnyAxis reports whether at least one vibration axis is present.
func (s RawSample) HasAnyAxis() bool {
	return s.VibrationX != nil || s.VibrationY != nil || s.VibrationZ != nil
}

// VectorMagnitude is the Euclidean norm over the axes that are present.
func (s RawSample) VectorMagnitude() float64 {
	var sum float64
	for _, a := range s.Axes() {
		if a != nil {
			sum += *a * *a
		}
	}
	return math.Sqrt(sum)
}

// SortForReplay orders samples by (sensor_id, cabin_number, cabin_code,
// timestamp, raw_id). Missing cabin fields sort first, as they do in SQLite.
func SortForReplay(samples []RawSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return ReplayLess(samples[i], samples[j])
	})
}

// ReplayLess is the comparison used by SortForReplay.
func ReplayLess(a, b RawSample) bool {
	if c := strings.Compare(a.SensorID, b.SensorID); c != 0 {
		return c < 0
	}
	if c := compareInt(a.CabinNumber, b.CabinNumber); c != 0 {
		return c < 0
	}
	if c := compareString(a.CabinCode, b.CabinCode); c != 0 {
		return c < 0
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.RawID < b.RawID
}

func compareInt(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(*a, *b)
}

// SortByTime orders samples chronologically, breaking ties by raw id.
func SortByTime(samples []RawSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if !samples[i].Timestamp.Equal(samples[j].Timestamp) {
			return samples[i].Timestamp.Before(samples[j].Timestamp)
		}
		return samples[i].RawID < samples[j].RawID
	})
}

// GroupBySensor splits samples per sensor id, preserving input order within
// each group. Sensor ids are returned sorted.
func GroupBySensor(samples []RawSample) (ids []string, groups map[string][]RawSample) {
	groups = make(map[string][]RawSample)
	for _, s := range samples {
		if _, ok := groups[s.SensorID]; !ok {
			ids = append(ids, s.SensorID)
		}
		groups[s.SensorID] = append(groups[s.SensorID], s)
	}
	sort.Strings(ids)
	return ids, groups
}

// Float returns a pointer to v. Handy for fixtures.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
