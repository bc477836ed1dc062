// Package window groups time-ordered raw samples into fixed-length,
// non-overlapping windows for batch feature extraction.
package window

import (
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

// DefaultWidth is the default window length.
const DefaultWidth = 60 * time.Second

// Split partitions samples into consecutive windows of width starting at the
// earliest timestamp. Windows are half-open [start, start+width) except the
// last one, which also keeps a sample sitting exactly on its right edge so
// the latest sample is never dropped. Empty windows are skipped.
//
// Splitting ends once a window start reaches the latest timestamp, so a
// sequence spanning a single instant yields no windows; callers then fall
// back to per-sample extraction. Input order is preserved within a window.
func Split(samples []telemetry.RawSample, width time.Duration) [][]telemetry.RawSample {
	if len(samples) == 0 {
		return nil
	}
	if width <= 0 {
		width = DefaultWidth
	}

	minTs, maxTs := samples[0].Timestamp, samples[0].Timestamp
	for _, s := range samples[1:] {
		if s.Timestamp.Before(minTs) {
			minTs = s.Timestamp
		}
		if s.Timestamp.After(maxTs) {
			maxTs = s.Timestamp
		}
	}

	var windows [][]telemetry.RawSample
	for start := minTs; start.Before(maxTs); start = start.Add(width) {
		end := start.Add(width)
		closed := !end.Before(maxTs)

		var group []telemetry.RawSample
		for _, s := range samples {
			if s.Timestamp.Before(start) {
				continue
			}
			if s.Timestamp.Before(end) || (closed && s.Timestamp.Equal(end)) {
				group = append(group, s)
			}
		}
		if len(group) > 0 {
			windows = append(windows, group)
		}
	}
	return windows
}

// Count returns how many windows Split would emit.
func Count(samples []telemetry.RawSample, width time.Duration) int {
	return len(Split(samples, width))
}
