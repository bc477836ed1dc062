package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cablecar.telemetry/internal/dataset"
	"github.com/banshee-data/cablecar.telemetry/internal/fsutil"
	"github.com/banshee-data/cablecar.telemetry/internal/units"
)

var (
	importBatch   int
	exportDir     string
	exportSensors []string
	exportLimit   int
	exportUnits   string
)

var importCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Load raw telemetry from a CSV file",
	Long:  "import appends the rows of a raw telemetry CSV (header: " + fmt.Sprint(dataset.RawColumns) + ") to raw_telemetry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		n, err := dataset.ImportRawCSV(cmd.Context(), fsutil.OSFileSystem{}, args[0], database, importBatch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d raw samples\n", n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write measurements to one CSV file per sensor",
	Long:  "export writes stored measurements, oldest first, to <out>/<sensor>.csv. The output directory must be inside the working directory or the system temp directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		files, err := dataset.ExportMeasurements(cmd.Context(), fsutil.OSFileSystem{}, database, dataset.ExportOptions{
			Dir:        exportDir,
			Sensors:    exportSensors,
			Limit:      exportLimit,
			SpeedUnits: exportUnits,
		})
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return err
	},
}

func init() {
	importCmd.Flags().IntVar(&importBatch, "batch-size", dataset.DefaultImportBatch, "Rows per transaction")

	exportCmd.Flags().StringVar(&exportDir, "out", "export", "Output directory")
	exportCmd.Flags().StringSliceVar(&exportSensors, "sensor", nil, "Sensor to export (repeatable, default all)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Keep only each sensor's most recent N measurements")
	exportCmd.Flags().StringVar(&exportUnits, "speed-units", units.MPS, "Velocity column units: mps, kmph or kph")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
