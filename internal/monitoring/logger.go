// Package monitoring holds the diagnostic logger shared by the telemetry
// pipeline, the replay simulator and the CLI.
package monitoring

import (
	"log"
	"sync"
)

var (
	mu   sync.RWMutex
	logf = log.Printf
)

// Logf writes a diagnostic line through the current logger. It defaults to
// log.Printf and can be redirected or muted with SetLogger.
func Logf(format string, v ...interface{}) {
	mu.RLock()
	f := logf
	mu.RUnlock()
	f(format, v...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
// The previous logger is returned so tests can restore it.
func SetLogger(f func(format string, v ...interface{})) (previous func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	mu.Lock()
	previous = logf
	logf = f
	mu.Unlock()
	return previous
}

// Component returns a logger that prefixes every line with name, e.g.
// "Simulator: loaded 42 raw samples".
func Component(name string) func(format string, v ...interface{}) {
	prefix := name + ": "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
