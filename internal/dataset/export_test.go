package dataset

import (
	"context"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cablecar.telemetry/internal/db"
	"github.com/banshee-data/cablecar.telemetry/internal/fsutil"
	"github.com/banshee-data/cablecar.telemetry/internal/pipeline"
	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

func seedMeasurements(t *testing.T) *db.DB {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, database.RecordRawSamples(ctx, db.TestSamples("CAB-01", start, 185, 25, 0.3)))
	require.NoError(t, database.RecordRawSamples(ctx, db.TestSamples("cab/02", start, 61, 25, 0.3)))
	_, err := pipeline.NewProcessor(database).RunOnce(ctx)
	require.NoError(t, err)
	return database
}

func readCSV(t *testing.T, fsys *fsutil.MemoryFileSystem, path string) [][]string {
	t.Helper()
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportMeasurements(t *testing.T) {
	quiet(t)
	database := seedMeasurements(t)
	fsys := fsutil.NewMemoryFileSystem()

	files, err := ExportMeasurements(context.Background(), fsys, database, ExportOptions{
		Dir:         "/export/run1",
		AllowedDirs: []string{"/export"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/export/run1/CAB-01.csv", "/export/run1/cab_02.csv"}, files)
	assert.Equal(t, files, fsys.Files("/export/run1"))

	records := readCSV(t, fsys, "/export/run1/CAB-01.csv")
	require.Len(t, records, 5)
	assert.Equal(t, MeasurementColumns, records[0])
	assert.Equal(t, "CAB-01", records[1][0])
	assert.Equal(t, "2025-03-01T08:00:59Z", records[1][1])
	assert.Equal(t, "crucero", records[4][len(MeasurementColumns)-1])

	records = readCSV(t, fsys, "/export/run1/cab_02.csv")
	require.Len(t, records, 2)
	assert.Equal(t, "cab/02", records[1][0])
}

func TestExportMeasurementsLimitAndSensors(t *testing.T) {
	quiet(t)
	database := seedMeasurements(t)
	fsys := fsutil.NewMemoryFileSystem()

	files, err := ExportMeasurements(context.Background(), fsys, database, ExportOptions{
		Dir:         "/export",
		Sensors:     []string{"CAB-01"},
		Limit:       2,
		AllowedDirs: []string{"/export"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/export/CAB-01.csv"}, files)

	records := readCSV(t, fsys, files[0])
	require.Len(t, records, 3)
	assert.Equal(t, "2025-03-01T08:02:59Z", records[1][1])
	assert.Equal(t, "2025-03-01T08:03:04Z", records[2][1])
}

func TestExportMeasurementsRejectsOutsideDir(t *testing.T) {
	quiet(t)
	database := seedMeasurements(t)
	root := t.TempDir()

	_, err := ExportMeasurements(context.Background(), fsutil.NewMemoryFileSystem(), database, ExportOptions{
		Dir:         filepath.Join(root, "..", "elsewhere"),
		AllowedDirs: []string{root},
	})
	assert.Error(t, err)

	files, err := ExportMeasurements(context.Background(), fsutil.OSFileSystem{}, database, ExportOptions{
		Dir:         filepath.Join(root, "out"),
		AllowedDirs: []string{root},
	})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMeasurementRecord(t *testing.T) {
	lat := 4.6
	rec := measurementRecord(db.Measurement{
		SensorID:  "CAB-01",
		Timestamp: time.Date(2025, 3, 1, 8, 0, 0, 1500, time.UTC),
		Latitude:  &lat,
		RMS:       0.5196,
		State:     "parado",
	})
	require.Len(t, rec, len(MeasurementColumns))
	assert.Equal(t, "2025-03-01T08:00:00.0000015Z", rec[1])
	assert.Equal(t, "4.6", rec[2])
	assert.Equal(t, "", rec[3])
	assert.Equal(t, "0.5196", rec[8])
	assert.Equal(t, "parado", rec[20])
}

func TestExportMeasurementsSpeedUnits(t *testing.T) {
	quiet(t)
	database := seedMeasurements(t)
	fsys := fsutil.NewMemoryFileSystem()

	files, err := ExportMeasurements(context.Background(), fsys, database, ExportOptions{
		Dir:         "/export",
		Sensors:     []string{"CAB-01"},
		AllowedDirs: []string{"/export"},
		SpeedUnits:  units.KMPH,
	})
	require.NoError(t, err)
	records := readCSV(t, fsys, files[0])
	assert.Equal(t, "velocity_kmph", records[0][5])
	assert.Equal(t, "velocity_mps", MeasurementColumns[5])
	v, err := strconv.ParseFloat(records[1][5], 64)
	require.NoError(t, err)
	assert.InDelta(t, 25, v, 1e-9)

	_, err = ExportMeasurements(context.Background(), fsys, database, ExportOptions{
		Dir:         "/export",
		AllowedDirs: []string{"/export"},
		SpeedUnits:  "mph",
	})
	assert.ErrorContains(t, err, "invalid speed units")
}
