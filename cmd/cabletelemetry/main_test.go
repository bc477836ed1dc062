package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cablecar.telemetry/internal/db"
	"github.com/banshee-data/cablecar.telemetry/internal/monitoring"
	"github.com/banshee-data/cablecar.telemetry/internal/pipeline"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	processFull, processStart, processEnd = false, "", ""
	exportSensors, exportLimit = nil, 0
	configPath = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cabletelemetry dev")
}

func TestMigrateCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	out, err := run(t, "--db", path, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0 (latest 2")

	out, err = run(t, "--db", path, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2 (latest 2, dirty=false)")

	out, err = run(t, "--db", path, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	_, err = run(t, "--db", path, "migrate", "force", "two")
	assert.Error(t, err)
}

func TestProcessCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	database, err := db.NewDB(path)
	require.NoError(t, err)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, database.RecordRawSamples(context.Background(), db.TestSamples("CAB-01", start, 185, 25, 0.3)))
	require.NoError(t, database.Close())

	out, err := run(t, "--db", path, "process")
	require.NoError(t, err)
	var sum pipeline.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 4, sum.Processed)
	assert.False(t, sum.NoNewData)

	out, err = run(t, "--db", path, "process")
	require.NoError(t, err)
	sum = pipeline.Summary{}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.True(t, sum.NoNewData)

	out, err = run(t, "--db", path, "process", "--start", "2025-03-01T08:00:00Z", "--end", "2025-03-01T08:00:59Z")
	require.NoError(t, err)
	sum = pipeline.Summary{}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 60, sum.Samples)
	assert.Equal(t, 1, sum.Updated)

	out, err = run(t, "--db", path, "process", "--full")
	require.NoError(t, err)
	sum = pipeline.Summary{}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 185, sum.Samples)
}

func TestProcessFlagValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	_, err := run(t, "--db", path, "process", "--full", "--start", "2025-03-01T08:00:00Z", "--end", "2025-03-01T09:00:00Z")
	assert.ErrorContains(t, err, "--full")

	_, err = run(t, "--db", path, "process", "--start", "2025-03-01T08:00:00Z")
	assert.ErrorContains(t, err, "together")

	_, err = run(t, "--db", path, "process", "--start", "yesterday", "--end", "today")
	assert.ErrorContains(t, err, "invalid --start")
}

func TestConfigFileDBPath(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "from-config.db")
	cfgFile := filepath.Join(dir, "cablecar.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("db_path: "+dbFile+"\n"), 0o644))

	prevDB := dbPath
	t.Cleanup(func() {
		dbPath = prevDB
		rootCmd.PersistentFlags().Lookup("db").Changed = false
	})
	rootCmd.PersistentFlags().Lookup("db").Changed = false

	_, err := run(t, "--config", cfgFile, "migrate", "up")
	require.NoError(t, err)
	_, err = os.Stat(dbFile)
	assert.NoError(t, err)
}

func TestSimulateDisabled(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "cablecar.json")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`{"simulator_enabled": false}`), 0o644))

	_, err := run(t, "--db", filepath.Join(dir, "sim.db"), "--config", cfgFile, "simulate")
	assert.ErrorContains(t, err, "disabled")
}

func TestImportExportCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.db")
	csvFile := filepath.Join(dir, "raw.csv")

	var b bytes.Buffer
	b.WriteString("sensor_id,timestamp,speed_kmh,latitude,longitude,position_m\n")
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 90; i++ {
		fmt.Fprintf(&b, "CAB-07,%s,25,%.4f,-74.05,%d\n", start.Add(time.Duration(i)*time.Second).Format(time.RFC3339), 4.6+float64(i)*0.0001, 5000+7*i)
	}
	require.NoError(t, os.WriteFile(csvFile, b.Bytes(), 0o644))

	out, err := run(t, "--db", path, "import", csvFile)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 90 raw samples")

	_, err = run(t, "--db", path, "process")
	require.NoError(t, err)

	outDir := filepath.Join(dir, "export")
	out, err = run(t, "--db", path, "export", "--out", outDir, "--sensor", "CAB-07")
	require.NoError(t, err)
	exported := filepath.Join(outDir, "CAB-07.csv")
	assert.Contains(t, out, exported)

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3, "header plus two windows")

	_, err = run(t, "--db", path, "import", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
