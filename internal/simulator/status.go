package simulator

import "time"

// Status is a consistent snapshot of the simulator.
type Status struct {
	Enabled      bool          `json:"enabled"`
	Running      bool          `json:"running"`
	State        string        `json:"state"`
	Interval     time.Duration `json:"interval"`
	SliceSize    int           `json:"slice_size"`
	TotalRecords int           `json:"total_records"`
	Cursor       int           `json:"cursor"`
	Cycles       int64         `json:"cycles"`
	Processed    int64         `json:"processed"`
	Started      bool          `json:"started"`
	RunID        string        `json:"run_id,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}

// Status returns a snapshot taken under the lock the replay loop uses, so
// counters are never observed mid-update.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Enabled:      s.opts.Enabled,
		Running:      s.lifecycle == Loading || s.lifecycle == Running,
		State:        s.lifecycle.String(),
		Interval:     s.opts.Interval,
		SliceSize:    s.opts.SliceSize,
		TotalRecords: len(s.samples),
		Cursor:       s.cursor,
		Cycles:       s.cycles,
		Processed:    s.processed,
		Started:      s.started,
		RunID:        s.runID,
		LastError:    s.lastError,
	}
}
