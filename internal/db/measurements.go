package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/features"
)

// Measurement is a persisted FeatureSet, unique per (SensorID, Timestamp).
type Measurement struct {
	SensorID  string    `json:"sensor_id"`
	Timestamp time.Time `json:"timestamp"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`

	VelocityMps float64  `json:"velocity_mps"`
	DistanceM   float64  `json:"distance_m"`
	PositionM   *float64 `json:"position_m,omitempty"`

	RMS         float64 `json:"rms"`
	Peak        float64 `json:"peak"`
	CrestFactor float64 `json:"crest_factor"`
	Kurtosis    float64 `json:"kurtosis"`
	Skewness    float64 `json:"skewness"`
	ZCR         float64 `json:"zcr"`

	MeanFrequency         float64 `json:"mean_frequency"`
	DominantFrequency     float64 `json:"dominant_frequency"`
	PeakSpectralAmplitude float64 `json:"peak_spectral_amplitude"`
	BandEnergy1           float64 `json:"band_energy_1"`
	BandEnergy2           float64 `json:"band_energy_2"`
	BandEnergy3           float64 `json:"band_energy_3"`

	State string `json:"state"`
}

// MeasurementFromFeatures maps a FeatureSet onto its stored form.
func MeasurementFromFeatures(fs features.FeatureSet) Measurement {
	return Measurement{
		SensorID:              fs.SensorID,
		Timestamp:             fs.Timestamp,
		Latitude:              fs.Latitude,
		Longitude:             fs.Longitude,
		Altitude:              fs.Altitude,
		VelocityMps:           fs.VelocityMps,
		DistanceM:             fs.DistanceM,
		PositionM:             fs.PositionM,
		RMS:                   fs.Vibration.RMS,
		Peak:                  fs.Vibration.Peak,
		CrestFactor:           fs.Vibration.CrestFactor,
		Kurtosis:              fs.Vibration.Kurtosis,
		Skewness:              fs.Vibration.Skewness,
		ZCR:                   fs.Vibration.ZCR,
		MeanFrequency:         fs.Spectral.MeanFrequency,
		DominantFrequency:     fs.Spectral.DominantFrequency,
		PeakSpectralAmplitude: fs.Spectral.PeakSpectralAmplitude,
		BandEnergy1:           fs.Spectral.BandEnergy1,
		BandEnergy2:           fs.Spectral.BandEnergy2,
		BandEnergy3:           fs.Spectral.BandEnergy3,
		State:                 fs.State,
	}
}

// upsertMeasurementSQL inserts a measurement or overwrites every feature
// column of the row already stored under the same natural key.
const upsertMeasurementSQL = `
	INSERT INTO measurements (
		sensor_id, ts_unix_nanos, latitude, longitude, altitude,
		velocity_mps, distance_m, position_m,
		rms, peak, crest_factor, kurtosis, skewness, zcr,
		mean_frequency, dominant_frequency, peak_spectral_amplitude,
		band_energy_1, band_energy_2, band_energy_3,
		state, updated_unix_nanos
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(sensor_id, ts_unix_nanos) DO UPDATE SET
		latitude = excluded.latitude,
		longitude = excluded.longitude,
		altitude = excluded.altitude,
		velocity_mps = excluded.velocity_mps,
		distance_m = excluded.distance_m,
		position_m = excluded.position_m,
		rms = excluded.rms,
		peak = excluded.peak,
		crest_factor = excluded.crest_factor,
		kurtosis = excluded.kurtosis,
		skewness = excluded.skewness,
		zcr = excluded.zcr,
		mean_frequency = excluded.mean_frequency,
		dominant_frequency = excluded.dominant_frequency,
		peak_spectral_amplitude = excluded.peak_spectral_amplitude,
		band_energy_1 = excluded.band_energy_1,
		band_energy_2 = excluded.band_energy_2,
		band_energy_3 = excluded.band_energy_3,
		state = excluded.state,
		updated_unix_nanos = excluded.updated_unix_nanos`

func upsertArgs(m Measurement, now time.Time) []interface{} {
	return []interface{}{
		m.SensorID, toUnixNanos(m.Timestamp),
		nullFloat(m.Latitude), nullFloat(m.Longitude), nullFloat(m.Altitude),
		m.VelocityMps, m.DistanceM, nullFloat(m.PositionM),
		m.RMS, m.Peak, m.CrestFactor, m.Kurtosis, m.Skewness, m.ZCR,
		m.MeanFrequency, m.DominantFrequency, m.PeakSpectralAmplitude,
		m.BandEnergy1, m.BandEnergy2, m.BandEnergy3,
		m.State, toUnixNanos(now),
	}
}

const measurementExistsSQL = `SELECT EXISTS(
		SELECT 1 FROM measurements WHERE sensor_id = ? AND ts_unix_nanos = ?)`

// UpsertStats describes the outcome of an UpsertMeasurements call.
type UpsertStats struct {
	// Applied is the number of items in committed batches.
	Applied int
	// Updated is how many of those replaced a row that already existed.
	Updated int
}

// upsertMeasurement writes m within tx and reports whether its natural key
// was already stored. The check runs inside the batch transaction, so other
// writers to the table cannot skew the answer.
func upsertMeasurement(ctx context.Context, tx *sql.Tx, m Measurement, now time.Time) (bool, error) {
	var existed bool
	if err := tx.QueryRowContext(ctx, measurementExistsSQL, m.SensorID, toUnixNanos(m.Timestamp)).Scan(&existed); err != nil {
		return false, fmt.Errorf("failed to look up measurement: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertMeasurementSQL, upsertArgs(m, now)...); err != nil {
		return false, err
	}
	return existed, nil
}

// UpsertMeasurements writes measurements keyed by (sensor_id, timestamp),
// committing every batchSize items. A failing item rolls back the batch it
// belongs to and the run continues with the next item, so one bad row never
// aborts the whole call. Stats count committed batches only. Only context
// cancellation or a failure to open a transaction is returned as an error.
func (db *DB) UpsertMeasurements(ctx context.Context, ms []Measurement, batchSize int) (UpsertStats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var (
		stats   UpsertStats
		tx      *sql.Tx
		pending UpsertStats
	)
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			logf("measurement batch of %d failed to commit: %v", pending.Applied, err)
		} else {
			stats.Applied += pending.Applied
			stats.Updated += pending.Updated
		}
		tx, pending = nil, UpsertStats{}
	}

	for i, m := range ms {
		if err := ctx.Err(); err != nil {
			if tx != nil {
				rollback(tx)
			}
			return stats, err
		}
		if tx == nil {
			var err error
			if tx, err = db.BeginTx(ctx, nil); err != nil {
				return stats, fmt.Errorf("failed to begin measurement batch: %w", err)
			}
		}

		existed, err := upsertMeasurement(ctx, tx, m, time.Now())
		if err != nil {
			logf("measurement %d (%s @ %s) failed, rolling back batch of %d: %v",
				i, m.SensorID, m.Timestamp.Format(time.RFC3339Nano), pending.Applied+1, err)
			rollback(tx)
			tx, pending = nil, UpsertStats{}
			continue
		}
		pending.Applied++
		if existed {
			pending.Updated++
		}
		if pending.Applied >= batchSize {
			commit()
		}
	}
	commit()
	return stats, nil
}

// CommitSlice writes a replay slice in a single transaction. Any failure
// rolls back the whole slice.
func (db *DB) CommitSlice(ctx context.Context, ms []Measurement) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin slice: %w", err)
	}
	defer rollback(tx)

	now := time.Now()
	for _, m := range ms {
		if _, err := tx.ExecContext(ctx, upsertMeasurementSQL, upsertArgs(m, now)...); err != nil {
			return fmt.Errorf("failed to write %s measurement: %w", m.SensorID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slice: %w", err)
	}
	return nil
}

// MeasurementSensorIDs lists the sensors with stored measurements.
func (db *DB) MeasurementSensorIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT sensor_id FROM measurements ORDER BY sensor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SensorMeasurements returns up to limit of a sensor's most recent
// measurements in chronological order. A non-positive limit returns all.
func (db *DB) SensorMeasurements(ctx context.Context, sensorID string, limit int) ([]Measurement, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT sensor_id, ts_unix_nanos, latitude, longitude, altitude,
				velocity_mps, distance_m, position_m,
				rms, peak, crest_factor, kurtosis, skewness, zcr,
				mean_frequency, dominant_frequency, peak_spectral_amplitude,
				band_energy_1, band_energy_2, band_energy_3, state
			FROM measurements
			WHERE sensor_id = ?
			ORDER BY ts_unix_nanos DESC
			LIMIT ?
		) ORDER BY ts_unix_nanos ASC`, sensorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var (
			m             Measurement
			ts            int64
			lat, lon, alt sql.NullFloat64
			position      sql.NullFloat64
		)
		if err := rows.Scan(
			&m.SensorID, &ts, &lat, &lon, &alt,
			&m.VelocityMps, &m.DistanceM, &position,
			&m.RMS, &m.Peak, &m.CrestFactor, &m.Kurtosis, &m.Skewness, &m.ZCR,
			&m.MeanFrequency, &m.DominantFrequency, &m.PeakSpectralAmplitude,
			&m.BandEnergy1, &m.BandEnergy2, &m.BandEnergy3, &m.State,
		); err != nil {
			return nil, err
		}
		m.Timestamp = fromUnixNanos(ts)
		m.Latitude, m.Longitude, m.Altitude = floatPtr(lat), floatPtr(lon), floatPtr(alt)
		m.PositionM = floatPtr(position)
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestMeasurementTimes returns each sensor's most recent measurement time.
func (db *DB) LatestMeasurementTimes(ctx context.Context) (map[string]time.Time, error) {
	rows, err := db.QueryContext(ctx, `SELECT sensor_id, MAX(ts_unix_nanos) FROM measurements GROUP BY sensor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var ts int64
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, err
		}
		latest[id] = fromUnixNanos(ts)
	}
	return latest, rows.Err()
}
