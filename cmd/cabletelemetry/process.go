package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cablecar.telemetry/internal/pipeline"
)

var (
	processFull  bool
	processStart string
	processEnd   string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Extract measurements from raw telemetry",
	Long: `process reduces raw telemetry to windowed measurements.

Without flags only samples newer than each sensor's latest measurement are
processed. --full reprocesses the whole history, --start/--end a time range
(RFC 3339). Reprocessing overwrites existing measurements.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if processFull && (processStart != "" || processEnd != "") {
			return fmt.Errorf("--full cannot be combined with --start/--end")
		}
		if (processStart == "") != (processEnd == "") {
			return fmt.Errorf("--start and --end must be given together")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		p := &pipeline.Processor{
			DB:         database,
			Extractor:  newExtractor(cfg),
			Classifier: newClassifier(cfg),
			Window:     cfg.GetWindow(),
			BatchSize:  cfg.GetBatchSize(),
			Workers:    cfg.GetWorkers(),
		}

		ctx := cmd.Context()
		var sum pipeline.Summary
		switch {
		case processFull:
			sum, err = p.RunFullHistory(ctx)
		case processStart != "":
			start, end, perr := parseRange(processStart, processEnd)
			if perr != nil {
				return perr
			}
			sum, err = p.RunRange(ctx, start, end)
		default:
			sum, err = p.RunOnce(ctx)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	},
}

func init() {
	processCmd.Flags().BoolVar(&processFull, "full", false, "Reprocess the full raw history")
	processCmd.Flags().StringVar(&processStart, "start", "", "Range start (RFC 3339)")
	processCmd.Flags().StringVar(&processEnd, "end", "", "Range end, inclusive (RFC 3339)")
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}
	return start, end, nil
}
