package window

import (
	"reflect"
	"testing"
	"time"

	"github.com/banshee-data/cablecar.telemetry/internal/telemetry"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func series(seconds int) []telemetry.RawSample {
	samples := make([]telemetry.RawSample, seconds)
	for i := range samples {
		samples[i] = telemetry.RawSample{
			RawID:     int64(i + 1),
			SensorID:  "CAB-01",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return samples
}

func sizes(windows [][]telemetry.RawSample) []int {
	var out []int
	for _, w := range windows {
		out = append(out, len(w))
	}
	return out
}

func TestSplitSizes(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		width   time.Duration
		want    []int
	}{
		{"185 s in minutes", 185, time.Minute, []int{60, 60, 60, 5}},
		// 0..180 s: the sample at 180 s closes the third window.
		{"sample on final edge", 181, time.Minute, []int{60, 60, 61}},
		{"30 s windows", 130, 30 * time.Second, []int{30, 30, 30, 30, 10}},
		{"default width", 185, 0, []int{60, 60, 60, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sizes(Split(series(tt.seconds), tt.width))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("window sizes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplit185SecondsBounds(t *testing.T) {
	windows := Split(series(185), time.Minute)
	if len(windows) != 4 {
		t.Fatalf("got %d windows, want 4", len(windows))
	}
	last := windows[3]
	if !last[0].Timestamp.Equal(base.Add(180 * time.Second)) {
		t.Errorf("last window starts at %v", last[0].Timestamp)
	}
	if !last[4].Timestamp.Equal(base.Add(184 * time.Second)) {
		t.Errorf("last window ends at %v", last[4].Timestamp)
	}
}

func TestSplitSkipsEmptyWindows(t *testing.T) {
	samples := []telemetry.RawSample{
		{RawID: 1, Timestamp: base},
		{RawID: 2, Timestamp: base.Add(10 * time.Second)},
		{RawID: 3, Timestamp: base.Add(200 * time.Second)},
	}
	windows := Split(samples, time.Minute)
	if got := sizes(windows); !reflect.DeepEqual(got, []int{2, 1}) {
		t.Fatalf("window sizes = %v, want [2 1]", got)
	}
	if windows[1][0].RawID != 3 {
		t.Errorf("second window holds raw %d, want 3", windows[1][0].RawID)
	}
}

func TestSplitDegenerateInputs(t *testing.T) {
	if got := Split(nil, time.Minute); got != nil {
		t.Errorf("Split(nil) = %v, want nil", got)
	}

	sameInstant := []telemetry.RawSample{
		{RawID: 1, Timestamp: base},
		{RawID: 2, Timestamp: base},
	}
	if got := Split(sameInstant, time.Minute); len(got) != 0 {
		t.Errorf("single instant gave %d windows, want 0", len(got))
	}
	if got := Count(sameInstant, time.Minute); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}

func TestSplitIsRestartable(t *testing.T) {
	samples := series(130)
	first := Split(samples, 30*time.Second)
	second := Split(samples, 30*time.Second)
	if !reflect.DeepEqual(first, second) {
		t.Error("splitting the same samples twice gave different windows")
	}
}
