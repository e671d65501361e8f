package examclient

import (
	"testing"
	"time"
)

func waitExpired(t *testing.T, expired <-chan struct{}) {
	t.Helper()
	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("onExpire did not fire")
	}
}

func TestCountdownRemaining(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	timer := NewCountdownTimer(clock, start, 30*time.Minute, nil)

	if got := timer.Remaining(); got != 30*time.Minute {
		t.Fatalf("Remaining at start = %v, want 30m", got)
	}

	clock.Advance(10 * time.Minute)
	if got := timer.Remaining(); got != 20*time.Minute {
		t.Fatalf("Remaining after 10m = %v, want 20m", got)
	}

	clock.Advance(25 * time.Minute)
	if got := timer.Remaining(); got != 0 {
		t.Fatalf("Remaining past deadline = %v, want 0", got)
	}
	if !timer.Expired() {
		t.Fatal("Expired() = false past deadline")
	}
}

func TestCountdownRemainingIgnoresLocalElapsedTime(t *testing.T) {
	// A reload 40 minutes into a 60-minute attempt must show 20 minutes,
	// because the deadline comes from the server's start instant.
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start.Add(40 * time.Minute))
	timer := NewCountdownTimer(clock, start, time.Hour, nil)

	if got := timer.Remaining(); got != 20*time.Minute {
		t.Fatalf("Remaining after reload = %v, want 20m", got)
	}
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	fired := 0
	expired := make(chan struct{})
	timer := NewCountdownTimer(clock, start, 2*time.Minute, func() {
		fired++
		close(expired)
	})
	timer.Start()

	clock.Advance(time.Minute)
	select {
	case <-expired:
		t.Fatal("expired early")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(90 * time.Second)
	waitExpired(t, expired)

	// Further ticks and stops must not fire again.
	clock.Advance(time.Minute)
	timer.Stop()
	if fired != 1 {
		t.Fatalf("onExpire fired %d times, want 1", fired)
	}
}

func TestCountdownZeroDurationFiresImmediately(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	expired := make(chan struct{})
	timer := NewCountdownTimer(clock, start, 0, func() { close(expired) })
	timer.Start()

	waitExpired(t, expired)
}

func TestCountdownStopDisarms(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	timer := NewCountdownTimer(clock, start, time.Minute, func() {
		t.Error("onExpire fired after Stop")
	})
	timer.Start()
	timer.Stop()

	clock.Advance(2 * time.Minute)
	time.Sleep(50 * time.Millisecond)

	// A disarmed timer must not restart either.
	timer.Start()
	time.Sleep(50 * time.Millisecond)
}

func TestCountdownStopInsideOnExpire(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	expired := make(chan struct{})
	var timer *CountdownTimer
	timer = NewCountdownTimer(clock, start, time.Minute, func() {
		timer.Stop() // must not deadlock
		close(expired)
	})
	timer.Start()

	clock.Advance(2 * time.Minute)
	waitExpired(t, expired)
}
