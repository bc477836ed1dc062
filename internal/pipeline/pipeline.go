// Package pipeline runs the batch path: raw telemetry is split into time
// windows per sensor, each window is reduced to a FeatureSet, classified and
// upserted into measurements.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cablecar.telemetry/internal/db"
	"github.com/banshee-data/cablecar.telemetry/internal/features"
	"github.com/banshee-data/cablecar.telemetry/internal/monitoring"
	"github.com/banshee-data/cablecar.telemetry/internal/state"
	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
	"github.com/banshee-data/cablecar.telemetry/internal/window"
)

var logf = monitoring.Component("Pipeline")

// DefaultWorkers bounds the number of sensors processed at once.
const DefaultWorkers = 4

// Summary reports the outcome of one run.
type Summary struct {
	RunID string `json:"run_id"`
	// Sensors is the number of sensors that had raw samples to process.
	Sensors int `json:"sensors"`
	Samples int `json:"samples"`
	Windows int `json:"windows"`
	// Processed counts measurements in committed batches; Updated is the
	// part of those that replaced an existing row.
	Processed int  `json:"processed"`
	Updated   int  `json:"updated"`
	NoNewData bool `json:"no_new_data"`
}

// Processor turns raw telemetry into stored measurements. Zero-valued
// fields fall back to defaults.
type Processor struct {
	DB         *db.DB
	Extractor  *features.Extractor
	Classifier *state.Classifier
	Window     time.Duration
	BatchSize  int
	Workers    int
}

// NewProcessor returns a Processor with default settings.
func NewProcessor(database *db.DB) *Processor {
	return &Processor{
		DB:         database,
		Extractor:  features.NewExtractor(features.DefaultOptions()),
		Classifier: state.NewClassifier(state.DefaultTrackLengthM),
		Window:     window.DefaultWidth,
		BatchSize:  db.DefaultBatchSize,
		Workers:    DefaultWorkers,
	}
}

// sensorJob is one sensor's input: its samples, or a loader for them, and
// the distance it had already accumulated.
type sensorJob struct {
	id       string
	samples  []telemetry.RawSample
	load     func(ctx context.Context) ([]telemetry.RawSample, float64, error)
	distance float64
}

// RunOnce processes, per sensor, the raw samples strictly after that
// sensor's latest stored measurement. Distance continues from that
// measurement.
func (p *Processor) RunOnce(ctx context.Context) (Summary, error) {
	ids, err := p.DB.RawSensorIDs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list sensors: %w", err)
	}
	latest, err := p.DB.LatestMeasurementTimes(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read latest measurements: %w", err)
	}

	jobs := make([]sensorJob, 0, len(ids))
	for _, id := range ids {
		id, after := id, latest[id]
		jobs = append(jobs, sensorJob{id: id, load: func(ctx context.Context) ([]telemetry.RawSample, float64, error) {
			samples, err := p.DB.RawSamplesAfter(ctx, id, after)
			if err != nil || len(samples) == 0 || after.IsZero() {
				return samples, 0, err
			}
			last, err := p.DB.SensorMeasurements(ctx, id, 1)
			if err != nil || len(last) == 0 {
				return samples, 0, err
			}
			return samples, last[0].DistanceM, nil
		}})
	}
	return p.run(ctx, "incremental", jobs)
}

// RunRange reprocesses every sample with start <= ts <= end. Rerunning a
// range overwrites the same measurements.
func (p *Processor) RunRange(ctx context.Context, start, end time.Time) (Summary, error) {
	if end.Before(start) {
		return Summary{}, fmt.Errorf("invalid range: end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	samples, err := p.DB.RawSamplesInRange(ctx, start, end)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load raw samples: %w", err)
	}
	ids, groups := telemetry.GroupBySensor(samples)
	jobs := make([]sensorJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, sensorJob{id: id, samples: groups[id]})
	}
	return p.run(ctx, "range", jobs)
}

// RunFullHistory reprocesses the whole raw table.
func (p *Processor) RunFullHistory(ctx context.Context) (Summary, error) {
	start, end, ok, err := p.DB.RawTimeRange(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read raw time range: %w", err)
	}
	if !ok {
		s := Summary{RunID: uuid.NewString(), NoNewData: true}
		logf("run %s (full): no raw telemetry", s.RunID)
		return s, nil
	}
	return p.RunRange(ctx, start, end)
}

func (p *Processor) run(ctx context.Context, mode string, jobs []sensorJob) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	logf("run %s (%s): %d sensors", sum.RunID, mode, len(jobs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			samples, distance := job.samples, job.distance
			if job.load != nil {
				var err error
				if samples, distance, err = job.load(gctx); err != nil {
					return fmt.Errorf("sensor %s: failed to load raw samples: %w", job.id, err)
				}
			}
			if len(samples) == 0 {
				return nil
			}

			ms, windows := p.Measurements(samples, distance)
			st, err := p.DB.UpsertMeasurements(gctx, ms, p.batchSize())
			if err != nil {
				return fmt.Errorf("sensor %s: %w", job.id, err)
			}
			if st.Applied < len(ms) {
				logf("sensor %s: %d of %d measurements stored", job.id, st.Applied, len(ms))
			}

			mu.Lock()
			sum.Sensors++
			sum.Samples += len(samples)
			sum.Windows += windows
			sum.Processed += st.Applied
			sum.Updated += st.Updated
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	if sum.Samples == 0 {
		sum.NoNewData = true
		logf("run %s: no new data", sum.RunID)
		return sum, nil
	}

	logf("run %s: sensors=%d samples=%d windows=%d processed=%d updated=%d",
		sum.RunID, sum.Sensors, sum.Samples, sum.Windows, sum.Processed, sum.Updated)
	return sum, nil
}

// Measurements reduces one sensor's chronologically ordered samples to
// classified measurements, continuing from an accumulated distance. When
// the samples span no time at all they are processed row by row. It
// returns the measurements and the number of windows used.
func (p *Processor) Measurements(samples []telemetry.RawSample, distance float64) ([]db.Measurement, int) {
	ex, cl := p.extractor(), p.classifier()
	windows := window.Split(samples, p.width())

	var ms []db.Measurement
	var prev *telemetry.RawSample
	if len(windows) == 0 {
		for i := range samples {
			fs := ex.ExtractSample(samples[i], prev, distance)
			fs.State = cl.ClassifyKmh(fs.VelocityKmh, fs.PositionM, &fs.DistanceM)
			ms = append(ms, db.MeasurementFromFeatures(fs))
			distance, prev = fs.DistanceM, &samples[i]
		}
		return ms, 0
	}

	for _, w := range windows {
		fs, ok := ex.ExtractWindow(w, prev, distance)
		if !ok {
			continue
		}
		fs.State = cl.ClassifyKmh(fs.VelocityKmh, fs.PositionM, &fs.DistanceM)
		ms = append(ms, db.MeasurementFromFeatures(fs))
		distance, prev = fs.DistanceM, &w[len(w)-1]
	}
	return ms, len(windows)
}

func (p *Processor) extractor() *features.Extractor {
	if p.Extractor == nil {
		return features.NewExtractor(features.DefaultOptions())
	}
	return p.Extractor
}

func (p *Processor) classifier() *state.Classifier {
	if p.Classifier == nil {
		return state.NewClassifier(state.DefaultTrackLengthM)
	}
	return p.Classifier
}

func (p *Processor) width() time.Duration {
	if p.Window <= 0 {
		return window.DefaultWidth
	}
	return p.Window
}

func (p *Processor) batchSize() int {
	if p.BatchSize <= 0 {
		return db.DefaultBatchSize
	}
	return p.BatchSize
}

func (p *Processor) workers() int {
	if p.Workers <= 0 {
		return DefaultWorkers
	}
	return p.Workers
}
