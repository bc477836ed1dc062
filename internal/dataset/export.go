package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/db"
	"github.com/banshee-data/cablecar.telemetry/internal/fsutil"
	"github.com/banshee-data/cablecar.telemetry/internal/security"
	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

// MeasurementColumns is the header of exported measurement files.
var MeasurementColumns = []string{
	"sensor_id", "timestamp", "latitude", "longitude", "altitude",
	"velocity_mps", "distance_m", "position_m",
	"rms", "peak", "crest_factor", "kurtosis", "skewness", "zcr",
	"mean_frequency", "dominant_frequency", "peak_spectral_amplitude",
	"band_energy_1", "band_energy_2", "band_energy_3", "state",
}

// MeasurementSource supplies stored measurements.
type MeasurementSource interface {
	MeasurementSensorIDs(ctx context.Context) ([]string, error)
	SensorMeasurements(ctx context.Context, sensorID string, limit int) ([]db.Measurement, error)
}

// ExportOptions selects what ExportMeasurements writes.
type ExportOptions struct {
	// Dir receives one <sensor>.csv per sensor.
	Dir string
	// Sensors limits the export; empty exports every sensor.
	Sensors []string
	// Limit keeps each sensor's most recent measurements; <= 0 keeps all.
	Limit int
	// AllowedDirs bounds Dir; empty uses security.DefaultExportDirs.
	AllowedDirs []string
	// SpeedUnits is one of units.ValidUnits; empty means m/s. It renames the
	// velocity column accordingly, e.g. velocity_kmph.
	SpeedUnits string
}

// ExportMeasurements writes each sensor's measurements, oldest first, and
// returns the files written.
func ExportMeasurements(ctx context.Context, fsys fsutil.FileSystem, src MeasurementSource, opts ExportOptions) ([]string, error) {
	if opts.SpeedUnits == "" {
		opts.SpeedUnits = units.MPS
	}
	if !units.IsValid(opts.SpeedUnits) {
		return nil, fmt.Errorf("invalid speed units %q, want one of %v", opts.SpeedUnits, units.ValidUnits)
	}
	allowed := opts.AllowedDirs
	if len(allowed) == 0 {
		var err error
		if allowed, err = security.DefaultExportDirs(); err != nil {
			return nil, err
		}
	}
	sensors := opts.Sensors
	if len(sensors) == 0 {
		var err error
		if sensors, err = src.MeasurementSensorIDs(ctx); err != nil {
			return nil, fmt.Errorf("failed to list sensors: %w", err)
		}
	}
	if err := fsys.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.Dir, err)
	}

	var files []string
	for _, id := range sensors {
		path, err := security.ExportFile(opts.Dir, id, ".csv", allowed)
		if err != nil {
			return files, err
		}
		ms, err := src.SensorMeasurements(ctx, id, opts.Limit)
		if err != nil {
			return files, fmt.Errorf("failed to read %s measurements: %w", id, err)
		}
		if err := writeMeasurements(fsys, path, ms, opts.SpeedUnits); err != nil {
			return files, err
		}
		logf("exported %d measurements of %s to %s", len(ms), id, path)
		files = append(files, path)
	}
	return files, nil
}

func writeMeasurements(fsys fsutil.FileSystem, path string, ms []db.Measurement, speedUnits string) (err error) {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header(speedUnits)); err != nil {
		return err
	}
	for _, m := range ms {
		m.VelocityMps = units.ConvertSpeed(m.VelocityMps, speedUnits)
		if err := w.Write(measurementRecord(m)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// header returns MeasurementColumns with the velocity column named after
// speedUnits.
func header(speedUnits string) []string {
	h := append([]string(nil), MeasurementColumns...)
	if speedUnits != units.MPS {
		h[5] = "velocity_" + speedUnits
	}
	return h
}

func measurementRecord(m db.Measurement) []string {
	return []string{
		m.SensorID,
		m.Timestamp.UTC().Format(time.RFC3339Nano),
		optFloat(m.Latitude), optFloat(m.Longitude), optFloat(m.Altitude),
		formatFloat(m.VelocityMps), formatFloat(m.DistanceM), optFloat(m.PositionM),
		formatFloat(m.RMS), formatFloat(m.Peak), formatFloat(m.CrestFactor),
		formatFloat(m.Kurtosis), formatFloat(m.Skewness), formatFloat(m.ZCR),
		formatFloat(m.MeanFrequency), formatFloat(m.DominantFrequency), formatFloat(m.PeakSpectralAmplitude),
		formatFloat(m.BandEnergy1), formatFloat(m.BandEnergy2), formatFloat(m.BandEnergy3),
		m.State,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
