package examclient

import (
	"sync"
	"time"
)

// CountdownTimer tracks the remaining time of an attempt. The deadline is
// derived from the server's absolute start instant plus the allowed
// duration, never from elapsed local ticks, so a reload or a paused laptop
// cannot stretch the exam.
type CountdownTimer struct {
	clock    Clock
	deadline time.Time
	onExpire func()

	mu       sync.Mutex
	ticker   Ticker
	stop     chan struct{}
	fired    bool
	disarmed bool
}

// NewCountdownTimer creates a timer for an attempt that started at start and
// is allowed to run for duration. onExpire fires exactly once, from the
// timer's goroutine, when the deadline passes.
func NewCountdownTimer(clock Clock, start time.Time, duration time.Duration, onExpire func()) *CountdownTimer {
	return &CountdownTimer{
		clock:    clock,
		deadline: start.Add(duration),
		onExpire: onExpire,
	}
}

// Remaining returns the time left, floored at zero.
func (t *CountdownTimer) Remaining() time.Duration {
	rem := t.deadline.Sub(t.clock.Now())
	if rem < 0 {
		return 0
	}
	return rem
}

// Expired reports whether the deadline has passed.
func (t *CountdownTimer) Expired() bool {
	return t.Remaining() == 0
}

// Start begins watching the deadline on a 1s tick. If the deadline has
// already passed (reload after the fact, or a zero duration), onExpire
// fires immediately. Start is a no-op on a running or finished timer.
func (t *CountdownTimer) Start() {
	t.mu.Lock()
	if t.stop != nil || t.fired || t.disarmed {
		t.mu.Unlock()
		return
	}

	if t.Expired() {
		t.mu.Unlock()
		t.fireExpire()
		return
	}

	t.ticker = t.clock.NewTicker(time.Second)
	t.stop = make(chan struct{})
	ticker, stop := t.ticker, t.stop
	t.mu.Unlock()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				if t.Expired() {
					t.fireExpire()
					return
				}
			}
		}
	}()
}

// Stop halts the watcher and disarms onExpire if it has not fired yet.
// Stopping from inside onExpire, or stopping twice, is safe.
func (t *CountdownTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	if !t.fired {
		t.disarmed = true
	}
}

func (t *CountdownTimer) fireExpire() {
	t.mu.Lock()
	if t.fired || t.disarmed {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire()
	}
}
