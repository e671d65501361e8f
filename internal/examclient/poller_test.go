package examclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPollerReturnsOnAuthorization(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	var calls atomic.Int64
	api := &fakeAPI{
		checkFn: func(ctx context.Context, examSerial string) error {
			if calls.Add(1) >= 3 {
				return nil
			}
			return ErrNotFound
		},
	}

	poller := NewAuthorizationPoller(api, clock, "EXAM-1", time.Second, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- poller.Wait(context.Background()) }()

	// First check runs immediately; two ticks settle it.
	for i := 0; i < 5; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Wait = %v, want nil", err)
			}
			if got := calls.Load(); got < 3 {
				t.Fatalf("authorized after %d checks, want >= 3", got)
			}
			return
		case <-time.After(20 * time.Millisecond):
			clock.Advance(time.Second)
		}
	}
	t.Fatal("poller never finished")
}

func TestPollerSwallowsTransportErrors(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	var calls atomic.Int64
	api := &fakeAPI{
		checkFn: func(ctx context.Context, examSerial string) error {
			switch calls.Add(1) {
			case 1:
				return errors.New("connection refused")
			case 2:
				return ErrServer
			default:
				return nil
			}
		},
	}

	poller := NewAuthorizationPoller(api, clock, "EXAM-1", time.Second, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- poller.Wait(context.Background()) }()

	for i := 0; i < 5; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Wait = %v, want nil after flaky polls", err)
			}
			return
		case <-time.After(20 * time.Millisecond):
			clock.Advance(time.Second)
		}
	}
	t.Fatal("poller never finished")
}

func TestPollerStopsOnAlreadySubmitted(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	api := &fakeAPI{
		checkFn: func(ctx context.Context, examSerial string) error {
			return ErrAlreadySubmitted
		},
	}

	poller := NewAuthorizationPoller(api, clock, "EXAM-1", time.Second, zerolog.Nop())
	if err := poller.Wait(context.Background()); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("Wait = %v, want ErrAlreadySubmitted", err)
	}
}

func TestPollerCancellable(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	api := &fakeAPI{
		checkFn: func(ctx context.Context, examSerial string) error {
			return ErrNotFound
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	poller := NewAuthorizationPoller(api, clock, "EXAM-1", time.Second, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- poller.Wait(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Wait = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}
