// Package simulator replays stored raw telemetry as live measurements.
//
// A Simulator loads the raw dataset once per run, ordered by sensor, cabin
// and time, and replays it one slice per tick: each slice is a group of
// samples sharing a timestamp, extracted, validated against its raw source,
// stamped with the current wall-clock time and committed atomically. When
// the dataset is exhausted the replay wraps to the start and every sensor's
// trajectory restarts from zero distance.
package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cablecar.telemetry/internal/db"
	"github.com/banshee-data/cablecar.telemetry/internal/features"
	"github.com/banshee-data/cablecar.telemetry/internal/monitoring"
	"github.com/banshee-data/cablecar.telemetry/internal/state"
	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
	"github.com/banshee-data/cablecar.telemetry/internal/timeutil"
)

var logf = monitoring.Component("Simulator")

var (
	// ErrDisabled is returned by Start when the simulator is disabled.
	ErrDisabled = errors.New("simulator is disabled")
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("simulator is already running")
)

// Source supplies the raw dataset in replay order.
type Source interface {
	LoadReplaySamples(ctx context.Context) ([]telemetry.RawSample, error)
}

// Sink stores one replay slice atomically.
type Sink interface {
	CommitSlice(ctx context.Context, ms []db.Measurement) error
}

// Lifecycle is the simulator's run state.
type Lifecycle int

const (
	Idle Lifecycle = iota
	Loading
	Running
	Stopping
	Stopped
)

func (l Lifecycle) String() string {
	switch l {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Options configures a Simulator.
type Options struct {
	Enabled   bool
	Interval  time.Duration
	SliceSize int
	Clock     timeutil.Clock
}

// DefaultOptions returns an enabled simulator replaying one sample every
// five seconds.
func DefaultOptions() Options {
	return Options{
		Enabled:   true,
		Interval:  5 * time.Second,
		SliceSize: 1,
		Clock:     timeutil.RealClock{},
	}
}

// replayContext is a sensor's trajectory within the current cycle.
type replayContext struct {
	distance float64
	prev     *telemetry.RawSample
}

// Simulator owns a single replay loop. All run state lives behind mu; the
// loop goroutine is its only writer.
type Simulator struct {
	source     Source
	sink       Sink
	extractor  *features.Extractor
	classifier *state.Classifier
	opts       Options

	mu        sync.Mutex
	lifecycle Lifecycle
	samples   []telemetry.RawSample
	cursor    int
	cycles    int64
	processed int64
	started   bool
	runID     string
	lastError string
	lastStamp time.Time
	contexts  map[string]replayContext

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an idle simulator. Zero options fall back to DefaultOptions.
func New(source Source, sink Sink, extractor *features.Extractor, classifier *state.Classifier, opts Options) *Simulator {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.SliceSize <= 0 {
		opts.SliceSize = def.SliceSize
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	if extractor == nil {
		extractor = features.NewExtractor(features.DefaultOptions())
	}
	if classifier == nil {
		classifier = state.NewClassifier(state.DefaultTrackLengthM)
	}
	return &Simulator{
		source:     source,
		sink:       sink,
		extractor:  extractor,
		classifier: classifier,
		opts:       opts,
		contexts:   make(map[string]replayContext),
	}
}

// Start launches the replay loop and returns immediately. The dataset is
// loaded by the loop itself; an empty dataset leaves the simulator Stopped.
// The loop ends when Stop is called or ctx is cancelled.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opts.Enabled {
		return ErrDisabled
	}
	switch s.lifecycle {
	case Loading, Running, Stopping:
		return ErrAlreadyRunning
	}

	s.lifecycle = Loading
	s.started = true
	s.runID = uuid.NewString()
	s.samples = nil
	s.cursor = 0
	s.cycles = 0
	s.processed = 0
	s.lastError = ""
	s.contexts = make(map[string]replayContext)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	// The ticker is created here so a tick can never be missed between
	// Start returning and the loop reaching its first wait.
	ticker := s.opts.Clock.NewTicker(s.opts.Interval)

	go s.run(runCtx, ticker, s.done)
	logf("starting run %s (interval=%s, slice=%d)", s.runID, s.opts.Interval, s.opts.SliceSize)
	return nil
}

// Stop cancels the replay loop and waits for it to exit. A slice already
// being committed is finished first. Stop is a no-op when not running.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	if s.lifecycle == Loading || s.lifecycle == Running {
		s.lifecycle = Stopping
	}
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Wait blocks until the current run's loop exits.
func (s *Simulator) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Simulator) run(ctx context.Context, ticker timeutil.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	defer s.setLifecycle(Stopped)

	samples, err := s.source.LoadReplaySamples(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logf("failed to load raw telemetry: %v", err)
			s.recordError(err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	if len(samples) == 0 {
		logf("no raw telemetry to replay; simulator stays stopped")
		return
	}

	s.mu.Lock()
	s.samples = samples
	s.lifecycle = Running
	s.mu.Unlock()
	logf("loaded %d raw samples", len(samples))

	for {
		s.step(ctx)
		select {
		case <-ctx.Done():
			logf("run %s stopped", s.Status().RunID)
			return
		case <-ticker.C():
		}
	}
}

// step replays the slice at the cursor.
func (s *Simulator) step(ctx context.Context) {
	s.mu.Lock()
	samples, start := s.samples, s.cursor
	stamp := s.nextStampLocked()
	s.mu.Unlock()

	end := sliceEnd(samples, start, s.opts.SliceSize)
	slice := samples[start:end]

	staged := make(map[string]replayContext, len(slice))
	ms := make([]db.Measurement, 0, len(slice))
	for i := range slice {
		raw := slice[i]
		rc, ok := staged[raw.SensorID]
		if !ok {
			rc = s.contexts[raw.SensorID]
		}

		fs := s.extractor.ExtractSample(raw, rc.prev, rc.distance)
		fs.Timestamp = stamp
		fs = Validate(raw, fs)
		fs.State = s.classifier.ClassifyKmh(fs.VelocityKmh, fs.PositionM, &fs.DistanceM)
		ms = append(ms, db.MeasurementFromFeatures(fs))

		staged[raw.SensorID] = replayContext{distance: fs.DistanceM, prev: &slice[i]}
	}

	// The commit is not cancelled by Stop: a slice models one instant and is
	// either stored whole or not at all.
	err := s.sink.CommitSlice(context.WithoutCancel(ctx), ms)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastError = err.Error()
		logf("slice at cursor %d rolled back: %v", start, err)
	} else {
		s.processed += int64(len(ms))
		for id, rc := range staged {
			s.contexts[id] = rc
		}
	}

	s.cursor = end
	if s.cursor >= len(samples) {
		s.cursor = 0
		s.cycles++
		s.contexts = make(map[string]replayContext)
		logf("cycle %d complete after %d samples", s.cycles, len(samples))
	}
}

// sliceEnd returns the exclusive end of the slice starting at start: up to
// size consecutive samples sharing the first sample's timestamp.
func sliceEnd(samples []telemetry.RawSample, start, size int) int {
	end := start + 1
	for end < len(samples) && end-start < size && samples[end].Timestamp.Equal(samples[start].Timestamp) {
		end++
	}
	return end
}

// nextStampLocked returns the wall-clock stamp for a slice, forced strictly
// after the previous one so natural keys never collide across slices.
func (s *Simulator) nextStampLocked() time.Time {
	now := s.opts.Clock.Now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = now
	return now
}

func (s *Simulator) setLifecycle(l Lifecycle) {
	s.mu.Lock()
	s.lifecycle = l
	s.mu.Unlock()
}

func (s *Simulator) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// Distance returns the distance a sensor has accumulated in the current
// cycle. ok is false before the sensor's first replayed sample.
func (s *Simulator) Distance(sensorID string) (meters float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, ok := s.contexts[sensorID]
	return rc.distance, ok
}
