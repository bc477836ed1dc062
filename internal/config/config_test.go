package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	if got := cfg.GetDBPath(); got != "cablecar.db" {
		t.Errorf("GetDBPath() = %q, want cablecar.db", got)
	}
	if got := cfg.GetWindow(); got != 60*time.Second {
		t.Errorf("GetWindow() = %v, want 60s", got)
	}
	if got := cfg.GetSimulatorInterval(); got != 5*time.Second {
		t.Errorf("GetSimulatorInterval() = %v, want 5s", got)
	}
	if got := cfg.GetSliceSize(); got != 1 {
		t.Errorf("GetSliceSize() = %d, want 1", got)
	}
	if got := cfg.GetBatchSize(); got != 100 {
		t.Errorf("GetBatchSize() = %d, want 100", got)
	}
	if got := cfg.GetWorkers(); got != 4 {
		t.Errorf("GetWorkers() = %d, want 4", got)
	}
	if got := cfg.GetTrackLengthM(); got != 18200 {
		t.Errorf("GetTrackLengthM() = %f, want 18200", got)
	}
	if got := cfg.GetSampleRateHz(); got != 1000 {
		t.Errorf("GetSampleRateHz() = %f, want 1000", got)
	}
	if got := cfg.GetSyntheticSamples(); got != 64 {
		t.Errorf("GetSyntheticSamples() = %d, want 64", got)
	}
	if !cfg.GetSimulatorEnabled() {
		t.Error("GetSimulatorEnabled() = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "cablecar.json", `{
  "db_path": "/var/lib/cablecar/telemetry.db",
  "window": "30s",
  "batch_size": 50,
  "simulator_enabled": false,
  "simulator_interval": "250ms"
}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.GetDBPath(); got != "/var/lib/cablecar/telemetry.db" {
		t.Errorf("GetDBPath() = %q", got)
	}
	if got := cfg.GetWindow(); got != 30*time.Second {
		t.Errorf("GetWindow() = %v, want 30s", got)
	}
	if got := cfg.GetBatchSize(); got != 50 {
		t.Errorf("GetBatchSize() = %d, want 50", got)
	}
	if cfg.GetSimulatorEnabled() {
		t.Error("GetSimulatorEnabled() = true, want false")
	}
	if got := cfg.GetSimulatorInterval(); got != 250*time.Millisecond {
		t.Errorf("GetSimulatorInterval() = %v, want 250ms", got)
	}
	// Omitted fields keep their defaults.
	if got := cfg.GetWorkers(); got != 4 {
		t.Errorf("GetWorkers() = %d, want 4", got)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	for _, name := range []string{"cablecar.yaml", "cablecar.yml"} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, name, "track_length_m: 9000\nslice_size: 3\nsynthetic_samples: 128\nworkers: 2\n")
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if got := cfg.GetTrackLengthM(); got != 9000 {
				t.Errorf("GetTrackLengthM() = %f, want 9000", got)
			}
			if got := cfg.GetSliceSize(); got != 3 {
				t.Errorf("GetSliceSize() = %d, want 3", got)
			}
			if got := cfg.GetSyntheticSamples(); got != 128 {
				t.Errorf("GetSyntheticSamples() = %d, want 128", got)
			}
			if got := cfg.GetWorkers(); got != 2 {
				t.Errorf("GetWorkers() = %d, want 2", got)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"extension", "cablecar.toml", "window = 1", "extension"},
		{"bad json", "c.json", "{", "failed to parse"},
		{"bad yaml", "c.yaml", "window: [", "failed to parse"},
		{"bad window", "c.json", `{"window": "soon"}`, "invalid window"},
		{"negative interval", "c.json", `{"simulator_interval": "-5s"}`, "must be positive"},
		{"zero batch", "c.yaml", "batch_size: 0\n", "batch_size"},
		{"zero slice", "c.yaml", "slice_size: 0\n", "slice_size"},
		{"negative track", "c.json", `{"track_length_m": -1}`, "track_length_m"},
		{"empty db path", "c.json", `{"db_path": " "}`, "db_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingAndOversized(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	big := `{"db_path": "` + strings.Repeat("a", maxFileSize) + `"}`
	_, err := LoadConfig(writeConfig(t, "big.json", big))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}
