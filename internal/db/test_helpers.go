package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

// NewTestDB creates a migrated database in a temporary directory that is
// closed when the test ends.
func NewTestDB(t testing.TB) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "cablecar_test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSamples returns n one-second-apart samples of a sensor moving north
// at speedKmh with all three vibration axes set to vib.
func TestSamples(sensorID string, start time.Time, n int, speedKmh, vib float64) []telemetry.RawSample {
	samples := make([]telemetry.RawSample, n)
	for i := range samples {
		samples[i] = telemetry.RawSample{
			SensorID:   sensorID,
			Timestamp:  start.Add(time.Duration(i) * time.Second),
			CabinCode:  telemetry.String("C1"),
			Latitude:   telemetry.Float(4.6000 + float64(i)*0.0001),
			Longitude:  telemetry.Float(-74.0500),
			Altitude:   telemetry.Float(2600),
			SpeedKmh:   speedKmh,
			VibrationX: telemetry.Float(vib),
			VibrationY: telemetry.Float(vib),
			VibrationZ: telemetry.Float(vib),
			PositionM:  telemetry.Float(5000 + float64(i)*7),
		}
	}
	return samples
}

// CountMeasurements returns the number of stored measurements.
func (db *DB) CountMeasurements(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&n)
	return n, err
}
