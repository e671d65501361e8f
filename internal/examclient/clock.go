// Package examclient implements the participant-side exam session runtime:
// admission, the proctor-authorization waiting loop, the countdown derived
// from the server's start instant, stable question shuffling, and answer
// autosave. It is transport-agnostic where it can be and deterministic under
// test via the Clock port.
package examclient

import "time"

// Clock abstracts wall time and ticker creation so timing behavior is
// testable without sleeping.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the minimal surface of time.Ticker the runtime needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock is the real-time Clock.
type SystemClock struct{}

// NewSystemClock creates a SystemClock.
func NewSystemClock() *SystemClock { return &SystemClock{} }

// Now returns the current wall time.
func (SystemClock) Now() time.Time { return time.Now() }

// NewTicker creates a real ticker.
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
