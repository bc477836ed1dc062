package monitoring

import (
	"fmt"
	"sync"
	"testing"
)

func TestSetLogger(t *testing.T) {
	var lines []string
	original := SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	defer SetLogger(original)

	Logf("loaded %d rows", 3)
	if len(lines) != 1 || lines[0] != "loaded 3 rows" {
		t.Fatalf("lines = %q, want [\"loaded 3 rows\"]", lines)
	}

	// nil mutes output without panicking
	SetLogger(nil)
	Logf("dropped")
	if len(lines) != 1 {
		t.Errorf("no-op logger should not reach the previous logger, got %q", lines)
	}
}

func TestComponentPrefix(t *testing.T) {
	var got string
	original := SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	defer SetLogger(original)

	Component("Simulator")("cycle %d complete", 2)
	if got != "Simulator: cycle 2 complete" {
		t.Errorf("got %q", got)
	}
}

func TestLogfConcurrentSwap(t *testing.T) {
	original := SetLogger(nil)
	defer SetLogger(original)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Logf("tick")
		}()
		go func() {
			defer wg.Done()
			SetLogger(func(string, ...interface{}) {})
		}()
	}
	wg.Wait()
}
