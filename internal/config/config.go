// Package config loads the runtime configuration of the telemetry tools.
//
// Every field is optional. Omitted fields are nil and the Get* accessors
// return the built-in default, so a partial file is always safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxFileSize bounds the size of a config file.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults.
const (
	DefaultDBPath           = "cablecar.db"
	DefaultWindow           = "60s"
	DefaultInterval         = "5s"
	DefaultSliceSize        = 1
	DefaultBatchSize        = 100
	DefaultTrackLengthM     = 18200.0
	DefaultSampleRateHz     = 1000.0
	DefaultSyntheticSamples = 64
	DefaultWorkers          = 4
)

// Config is the root configuration.
type Config struct {
	DBPath *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`

	// Batch pipeline
	Window    *string `json:"window,omitempty" yaml:"window,omitempty"` // duration string like "60s"
	BatchSize *int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	Workers   *int    `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Feature extraction and classification
	TrackLengthM     *float64 `json:"track_length_m,omitempty" yaml:"track_length_m,omitempty"`
	SampleRateHz     *float64 `json:"sample_rate_hz,omitempty" yaml:"sample_rate_hz,omitempty"`
	SyntheticSamples *int     `json:"synthetic_samples,omitempty" yaml:"synthetic_samples,omitempty"`

	// Simulator
	SimulatorEnabled  *bool   `json:"simulator_enabled,omitempty" yaml:"simulator_enabled,omitempty"`
	SimulatorInterval *string `json:"simulator_interval,omitempty" yaml:"simulator_interval,omitempty"` // duration string like "5s"
	SliceSize         *int    `json:"slice_size,omitempty" yaml:"slice_size,omitempty"`
}

// LoadConfig reads a .json, .yaml or .yml file and validates it.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	if c.DBPath != nil && strings.TrimSpace(*c.DBPath) == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if err := checkDuration("window", c.Window); err != nil {
		return err
	}
	if err := checkDuration("simulator_interval", c.SimulatorInterval); err != nil {
		return err
	}
	for name, v := range map[string]*int{
		"batch_size":        c.BatchSize,
		"workers":           c.Workers,
		"synthetic_samples": c.SyntheticSamples,
		"slice_size":        c.SliceSize,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}
	if c.TrackLengthM != nil && !(*c.TrackLengthM > 0) {
		return fmt.Errorf("track_length_m must be positive, got %f", *c.TrackLengthM)
	}
	if c.SampleRateHz != nil && !(*c.SampleRateHz > 0) {
		return fmt.Errorf("sample_rate_hz must be positive, got %f", *c.SampleRateHz)
	}
	return nil
}

func checkDuration(name string, s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, *s)
	}
	return nil
}

func parseDuration(s *string, def string) time.Duration {
	if s != nil && *s != "" {
		if d, err := time.ParseDuration(*s); err == nil && d > 0 {
			return d
		}
	}
	d, _ := time.ParseDuration(def)
	return d
}

// GetDBPath returns the sqlite database path.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetWindow returns the batch window width.
func (c *Config) GetWindow() time.Duration {
	return parseDuration(c.Window, DefaultWindow)
}

// GetSimulatorInterval returns the replay tick interval.
func (c *Config) GetSimulatorInterval() time.Duration {
	return parseDuration(c.SimulatorInterval, DefaultInterval)
}

func (c *Config) GetBatchSize() int {
	if c.BatchSize == nil {
		return DefaultBatchSize
	}
	return *c.BatchSize
}

func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

func (c *Config) GetSliceSize() int {
	if c.SliceSize == nil {
		return DefaultSliceSize
	}
	return *c.SliceSize
}

func (c *Config) GetTrackLengthM() float64 {
	if c.TrackLengthM == nil {
		return DefaultTrackLengthM
	}
	return *c.TrackLengthM
}

func (c *Config) GetSampleRateHz() float64 {
	if c.SampleRateHz == nil {
		return DefaultSampleRateHz
	}
	return *c.SampleRateHz
}

func (c *Config) GetSyntheticSamples() int {
	if c.SyntheticSamples == nil {
		return DefaultSyntheticSamples
	}
	return *c.SyntheticSamples
}

// GetSimulatorEnabled returns whether the simulator may be started.
func (c *Config) GetSimulatorEnabled() bool {
	if c.SimulatorEnabled == nil {
		return true
	}
	return *c.SimulatorEnabled
}
