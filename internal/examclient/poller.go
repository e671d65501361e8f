package examclient

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the waiting room asks whether a proctor
// has authorized the session.
const DefaultPollInterval = time.Second

// AuthorizationPoller waits in the admission room for a proctor to approve
// the session. Transport and server errors are swallowed: the participant
// just keeps waiting, exactly like a flaky exam-hall network.
type AuthorizationPoller struct {
	api        SessionAPI
	clock      Clock
	examSerial string
	interval   time.Duration
	log        zerolog.Logger
}

// NewAuthorizationPoller creates a poller for one attempt. interval <= 0
// falls back to DefaultPollInterval.
func NewAuthorizationPoller(api SessionAPI, clock Clock, examSerial string, interval time.Duration, log zerolog.Logger) *AuthorizationPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &AuthorizationPoller{
		api:        api,
		clock:      clock,
		examSerial: examSerial,
		interval:   interval,
		log:        log.With().Str("component", "authorization_poller").Logger(),
	}
}

// Wait blocks until the session is authorized (nil), the attempt turns out
// to be already submitted (ErrAlreadySubmitted), or the context is
// cancelled. An immediate check runs before the first tick so an already
// authorized session does not wait a full interval.
func (p *AuthorizationPoller) Wait(ctx context.Context) error {
	if done, err := p.checkOnce(ctx); done {
		return err
	}

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if done, err := p.checkOnce(ctx); done {
				return err
			}
		}
	}
}

// checkOnce runs one poll. done is true when polling should end.
func (p *AuthorizationPoller) checkOnce(ctx context.Context) (done bool, err error) {
	pollErr := p.api.CheckAuthorization(ctx, p.examSerial)
	switch {
	case pollErr == nil:
		return true, nil
	case errors.Is(pollErr, ErrAlreadySubmitted):
		return true, ErrAlreadySubmitted
	case errors.Is(pollErr, context.Canceled), errors.Is(pollErr, context.DeadlineExceeded):
		return true, pollErr
	default:
		// Not yet authorized, or the network hiccuped. Keep waiting.
		p.log.Debug().Err(pollErr).Msg("authorization pending")
		return false, nil
	}
}
