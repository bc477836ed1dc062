package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cablecar.telemetry/internal/monitoring"
	"github.com/banshee-data/cablecar.telemetry/internal/simulator"
	"github.com/banshee-data/cablecar.telemetry/internal/timeutil"
)

var logf = monitoring.Component("Main")

var (
	simInterval    time.Duration
	simSliceSize   int
	simStatusEvery time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay raw telemetry as live measurements",
	Long:  "simulate replays the raw dataset slice by slice, stamping each slice with the current time, until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		interval := cfg.GetSimulatorInterval()
		if cmd.Flags().Changed("interval") {
			interval = simInterval
		}
		sliceSize := cfg.GetSliceSize()
		if cmd.Flags().Changed("slice-size") {
			sliceSize = simSliceSize
		}

		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		sim := simulator.New(database, database, newExtractor(cfg), newClassifier(cfg), simulator.Options{
			Enabled:   cfg.GetSimulatorEnabled(),
			Interval:  interval,
			SliceSize: sliceSize,
			Clock:     timeutil.RealClock{},
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := sim.Start(ctx); err != nil {
			return err
		}
		done := make(chan struct{})
		go func() {
			sim.Wait()
			close(done)
		}()

		logStatus(ctx, sim, done)
		if err := sim.Stop(); err != nil {
			return err
		}
		st := sim.Status()
		logf("simulator %s after %d cycles, %d measurements", st.State, st.Cycles, st.Processed)
		return nil
	},
}

func init() {
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 5*time.Second, "Replay tick interval (e.g. 500ms, 5s)")
	simulateCmd.Flags().IntVar(&simSliceSize, "slice-size", 1, "Maximum samples per slice")
	simulateCmd.Flags().DurationVar(&simStatusEvery, "status-every", 30*time.Second, "Status log interval")
}

// logStatus logs a status line periodically until ctx is cancelled or the
// replay loop exits on its own.
func logStatus(ctx context.Context, sim *simulator.Simulator, done <-chan struct{}) {
	every := simStatusEvery
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			st := sim.Status()
			logf("simulator %s cursor=%d/%d cycles=%d processed=%d last_error=%q",
				st.State, st.Cursor, st.TotalRecords, st.Cycles, st.Processed, st.LastError)
		}
	}
}
