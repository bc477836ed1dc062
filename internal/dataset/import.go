// Package dataset moves data between CSV files and the database: raw
// telemetry exports are imported into raw_telemetry, and measurements are
// exported one file per sensor for the downstream models.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/fsutil"
	"github.com/banshee-data/cablecar.telemetry/internal/monitoring"
	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

var logf = monitoring.Component("Dataset")

// DefaultImportBatch is the number of rows inserted per transaction.
const DefaultImportBatch = 1000

// RawColumns is the raw telemetry CSV header. Columns may appear in any
// order; sensor_id and timestamp are required, the rest may be absent or
// left empty.
var RawColumns = []string{
	"sensor_id", "timestamp", "cabin_number", "cabin_code",
	"latitude", "longitude", "altitude",
	"speed_kmh", "acceleration", "temperature",
	"vibration_x", "vibration_y", "vibration_z",
	"direction", "position_m",
}

// timestampLayouts are tried in order. Layouts without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// RawStore receives imported samples.
type RawStore interface {
	RecordRawSamples(ctx context.Context, samples []telemetry.RawSample) error
}

// ReadRawCSV parses a raw telemetry CSV with a header row.
func ReadRawCSV(r io.Reader) ([]telemetry.RawSample, error) {
	var out []telemetry.RawSample
	err := scanRawCSV(r, func(s telemetry.RawSample) error {
		out = append(out, s)
		return nil
	})
	return out, err
}

// ImportRawCSV streams a raw telemetry CSV from fsys into store in batches
// and returns the number of imported rows. A malformed row aborts the
// import; batches already stored are kept.
func ImportRawCSV(ctx context.Context, fsys fsutil.FileSystem, path string, store RawStore, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultImportBatch
	}
	f, err := fsys.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var (
		imported int
		batch    = make([]telemetry.RawSample, 0, batchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.RecordRawSamples(ctx, batch); err != nil {
			return fmt.Errorf("failed to store rows %d-%d: %w", imported+1, imported+len(batch), err)
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	err = scanRawCSV(f, func(s telemetry.RawSample) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, s)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	logf("imported %d raw samples from %s", imported, path)
	return imported, err
}

func scanRawCSV(r io.Reader, fn func(telemetry.RawSample) error) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("empty CSV: missing header")
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"sensor_id", "timestamp"} {
		if _, ok := index[required]; !ok {
			return fmt.Errorf("CSV header lacks required column %q", required)
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		s, err := parseRawRecord(index, rec)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
}

// rawRow reads named fields from one record.
type rawRow struct {
	index map[string]int
	rec   []string
	err   error
}

func (r *rawRow) text(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r *rawRow) str(col string) *string {
	if v := r.text(col); v != "" {
		return &v
	}
	return nil
}

func (r *rawRow) float(col string) *float64 {
	v := r.text(col)
	if v == "" || r.err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.err = fmt.Errorf("invalid %s %q", col, v)
		return nil
	}
	return &f
}

func (r *rawRow) int(col string) *int64 {
	v := r.text(col)
	if v == "" || r.err != nil {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.err = fmt.Errorf("invalid %s %q", col, v)
		return nil
	}
	return &n
}

func parseRawRecord(index map[string]int, rec []string) (telemetry.RawSample, error) {
	row := &rawRow{index: index, rec: rec}

	s := telemetry.RawSample{SensorID: row.text("sensor_id")}
	if s.SensorID == "" {
		return s, fmt.Errorf("empty sensor_id")
	}
	ts, err := ParseTimestamp(row.text("timestamp"))
	if err != nil {
		return s, err
	}
	s.Timestamp = ts

	s.CabinNumber = row.int("cabin_number")
	s.CabinCode = row.str("cabin_code")
	s.Latitude = row.float("latitude")
	s.Longitude = row.float("longitude")
	s.Altitude = row.float("altitude")
	if speed := row.float("speed_kmh"); speed != nil {
		s.SpeedKmh = *speed
	}
	s.Acceleration = row.float("acceleration")
	s.Temperature = row.float("temperature")
	s.VibrationX = row.float("vibration_x")
	s.VibrationY = row.float("vibration_y")
	s.VibrationZ = row.float("vibration_z")
	s.Direction = row.str("direction")
	s.PositionM = row.float("position_m")
	return s, row.err
}

// ParseTimestamp accepts RFC 3339 and "YYYY-MM-DD hh:mm:ss[.fff]" (UTC).
func ParseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}
