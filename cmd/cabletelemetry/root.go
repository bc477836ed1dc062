package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cablecar.telemetry/internal/config"
	"github.com/banshee-data/cablecar.telemetry/internal/db"
	"github.com/banshee-data/cablecar.telemetry/internal/features"
	"github.com/banshee-data/cablecar.telemetry/internal/state"
)

var (
	dbPath     string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "cabletelemetry",
	Short:         "Cable-car telemetry feature extraction and replay",
	Long:          "cabletelemetry turns raw cabin telemetry into per-window vibration, spectral and state measurements, and can replay the raw dataset as a live feed.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath, "Path to the sqlite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config, if given, and lets an explicit --db win over
// the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	if f := cmd.Flag("db"); f != nil && (f.Changed || cfg.DBPath == nil) {
		p := dbPath
		cfg.DBPath = &p
	}
	return cfg, nil
}

// openDB opens the configured database and applies pending migrations.
func openDB(cfg *config.Config) (*db.DB, error) {
	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.GetDBPath(), err)
	}
	return database, nil
}

func newExtractor(cfg *config.Config) *features.Extractor {
	return features.NewExtractor(features.Options{
		SampleRateHz:     cfg.GetSampleRateHz(),
		SyntheticSamples: cfg.GetSyntheticSamples(),
	})
}

func newClassifier(cfg *config.Config) *state.Classifier {
	return state.NewClassifier(cfg.GetTrackLengthM())
}
