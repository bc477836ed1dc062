package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

const rawColumns = `raw_id, sensor_id, ts_unix_nanos, cabin_number, cabin_code,
	latitude, longitude, altitude, speed_kmh, acceleration, temperature,
	vibration_x, vibration_y, vibration_z, direction, position_m`

// RecordRawSamples inserts raw telemetry in one transaction. Ingestion is
// owned by another service; this exists for fixtures and local tooling.
// Assigned raw ids are written back into samples.
func (db *DB) RecordRawSamples(ctx context.Context, samples []telemetry.RawSample) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_telemetry (
			sensor_id, ts_unix_nanos, cabin_number, cabin_code,
			latitude, longitude, altitude, speed_kmh, acceleration, temperature,
			vibration_x, vibration_y, vibration_z, direction, position_m
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare raw insert: %w", err)
	}
	defer stmt.Close()

	for i := range samples {
		s := &samples[i]
		res, err := stmt.ExecContext(ctx,
			s.SensorID, toUnixNanos(s.Timestamp), nullInt(s.CabinNumber), nullString(s.CabinCode),
			nullFloat(s.Latitude), nullFloat(s.Longitude), nullFloat(s.Altitude),
			s.SpeedKmh, nullFloat(s.Acceleration), nullFloat(s.Temperature),
			nullFloat(s.VibrationX), nullFloat(s.VibrationY), nullFloat(s.VibrationZ),
			nullString(s.Direction), nullFloat(s.PositionM),
		)
		if err != nil {
			return fmt.Errorf("failed to insert raw sample %d: %w", i, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			s.RawID = id
		}
	}
	return tx.Commit()
}

// LoadReplaySamples returns every raw sample ordered by (sensor_id,
// cabin_number, cabin_code, timestamp, raw_id).
func (db *DB) LoadReplaySamples(ctx context.Context) ([]telemetry.RawSample, error) {
	return db.queryRaw(ctx, `SELECT `+rawColumns+` FROM raw_telemetry
		ORDER BY sensor_id, cabin_number, cabin_code, ts_unix_nanos, raw_id`)
}

// RawSamplesInRange returns samples with start <= ts <= end, ordered by
// sensor then time.
func (db *DB) RawSamplesInRange(ctx context.Context, start, end time.Time) ([]telemetry.RawSample, error) {
	return db.queryRaw(ctx, `SELECT `+rawColumns+` FROM raw_telemetry
		WHERE ts_unix_nanos BETWEEN ? AND ?
		ORDER BY sensor_id, ts_unix_nanos, raw_id`,
		toUnixNanos(start), toUnixNanos(end))
}

// RawSamplesAfter returns one sensor's samples strictly after the given
// time in chronological order. A zero time returns the full history.
func (db *DB) RawSamplesAfter(ctx context.Context, sensorID string, after time.Time) ([]telemetry.RawSample, error) {
	from := int64(math.MinInt64)
	if !after.IsZero() {
		from = toUnixNanos(after)
	}
	return db.queryRaw(ctx, `SELECT `+rawColumns+` FROM raw_telemetry
		WHERE sensor_id = ? AND ts_unix_nanos > ?
		ORDER BY ts_unix_nanos, raw_id`,
		sensorID, from)
}

// RawSensorIDs lists the sensors with raw telemetry.
func (db *DB) RawSensorIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT sensor_id FROM raw_telemetry ORDER BY sensor_id`)
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

// RawTimeRange returns the earliest and latest raw timestamps. ok is false
// when the table is empty.
func (db *DB) RawTimeRange(ctx context.Context) (start, end time.Time, ok bool, err error) {
	var lo, hi sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MIN(ts_unix_nanos), MAX(ts_unix_nanos) FROM raw_telemetry`).Scan(&lo, &hi); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if !lo.Valid || !hi.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return fromUnixNanos(lo.Int64), fromUnixNanos(hi.Int64), true, nil
}

// CountRawSamples returns the number of raw rows.
func (db *DB) CountRawSamples(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_telemetry`).Scan(&n)
	return n, err
}

func (db *DB) queryRaw(ctx context.Context, query string, args ...interface{}) ([]telemetry.RawSample, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []telemetry.RawSample
	for rows.Next() {
		var (
			s                    telemetry.RawSample
			ts                   int64
			cabinNumber          sql.NullInt64
			cabinCode, direction sql.NullString
			lat, lon, alt        sql.NullFloat64
			accel, temp          sql.NullFloat64
			vx, vy, vz, position sql.NullFloat64
		)
		if err := rows.Scan(
			&s.RawID, &s.SensorID, &ts, &cabinNumber, &cabinCode,
			&lat, &lon, &alt, &s.SpeedKmh, &accel, &temp,
			&vx, &vy, &vz, &direction, &position,
		); err != nil {
			return nil, err
		}
		s.Timestamp = fromUnixNanos(ts)
		s.CabinNumber = intPtr(cabinNumber)
		s.CabinCode = stringPtr(cabinCode)
		s.Latitude, s.Longitude, s.Altitude = floatPtr(lat), floatPtr(lon), floatPtr(alt)
		s.Acceleration, s.Temperature = floatPtr(accel), floatPtr(temp)
		s.VibrationX, s.VibrationY, s.VibrationZ = floatPtr(vx), floatPtr(vy), floatPtr(vz)
		s.Direction = stringPtr(direction)
		s.PositionM = floatPtr(position)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
