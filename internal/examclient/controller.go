package examclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionState is where an attempt currently stands. Transitions only move
// forward; there is no way back from Submitted or Expired.
type SessionState string

const (
	StateIdle                 SessionState = "IDLE"
	StatePendingAuthorization SessionState = "PENDING_AUTHORIZATION"
	StateActive               SessionState = "ACTIVE"
	StateSubmitted            SessionState = "SUBMITTED"
	StateExpired              SessionState = "EXPIRED"
)

// ErrInvalidState is returned when an operation does not apply to the
// current state, e.g. saving an answer before authorization.
var ErrInvalidState = errors.New("operation not valid in current session state")

// expirySubmitTimeout bounds the best-effort submit fired on expiry.
const expirySubmitTimeout = 10 * time.Second

// SessionController drives one exam attempt end to end: admission, the
// authorization wait, the active exam with countdown and answer sync, and
// the terminal submit or expiry. It is safe for concurrent use.
type SessionController struct {
	api   SessionAPI
	clock Clock
	store CredentialStore
	log   zerolog.Logger
	rng   *rand.Rand

	pollInterval time.Duration

	mu         sync.Mutex
	state      SessionState
	examSerial string
	sequencer  *QuestionSequencer
	timer      *CountdownTimer
	answers    *AnswerSyncer
}

// NewSessionController creates a controller in StateIdle.
func NewSessionController(api SessionAPI, clock Clock, store CredentialStore, log zerolog.Logger) *SessionController {
	return &SessionController{
		api:          api,
		clock:        clock,
		store:        store,
		log:          log.With().Str("component", "session_controller").Logger(),
		pollInterval: DefaultPollInterval,
		state:        StateIdle,
	}
}

// SetPollInterval overrides the authorization poll interval. Must be called
// before AwaitAuthorization.
func (c *SessionController) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollInterval = d
}

// SetShuffleRand installs a deterministic shuffle source.
func (c *SessionController) SetShuffleRand(rng *rand.Rand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng = rng
}

// State returns the current session state.
func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ExamSerial returns the serial of the attempt's exam, or "" before Start.
func (c *SessionController) ExamSerial() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.examSerial
}

// Start performs admission and moves to StatePendingAuthorization. The
// returned session serial is what the participant shows the proctor.
func (c *SessionController) Start(ctx context.Context, examSerial, name, password string) (string, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	c.mu.Unlock()

	res, err := c.api.StartExam(ctx, examSerial, name, password)
	if err != nil {
		return "", err
	}

	c.installCredentials(Credentials{
		Token:         res.Token,
		ExamSerial:    examSerial,
		SessionSerial: res.SessionSerial,
	})

	if err := c.store.Save(Credentials{
		Token:         res.Token,
		ExamSerial:    examSerial,
		SessionSerial: res.SessionSerial,
	}); err != nil {
		c.log.Warn().Err(err).Msg("credential save failed")
	}

	c.mu.Lock()
	c.state = StatePendingAuthorization
	c.mu.Unlock()

	c.log.Info().Str("exam", examSerial).Str("session", res.SessionSerial).Msg("admission complete")
	return res.SessionSerial, nil
}

// Resume picks up a stored attempt after a restart and moves to
// StatePendingAuthorization; AwaitAuthorization then settles whether the
// attempt is actually authorized, pending, or finished.
func (c *SessionController) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	c.mu.Unlock()

	creds, err := c.store.Load()
	if err != nil {
		return err
	}

	c.installCredentials(*creds)

	c.mu.Lock()
	c.state = StatePendingAuthorization
	c.mu.Unlock()

	c.log.Info().Str("exam", creds.ExamSerial).Msg("attempt resumed")
	return nil
}

// AwaitAuthorization blocks until a proctor authorizes the session, then
// loads the question set and starts the countdown, moving to StateActive.
// If the attempt turns out to be already submitted, the state becomes
// StateSubmitted and ErrAlreadySubmitted is returned.
func (c *SessionController) AwaitAuthorization(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePendingAuthorization {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	examSerial := c.examSerial
	interval := c.pollInterval
	c.mu.Unlock()

	poller := NewAuthorizationPoller(c.api, c.clock, examSerial, interval, c.log)
	if err := poller.Wait(ctx); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			c.finish(StateSubmitted)
		}
		return err
	}

	return c.enterExam(ctx, examSerial)
}

// enterExam fetches the question set, derives the countdown from the
// server's start instant, and builds the presentation order. A stored order
// from a previous load survives as long as the id set is unchanged.
func (c *SessionController) enterExam(ctx context.Context, examSerial string) error {
	set, err := c.api.GetQuestions(ctx, examSerial)
	if err != nil {
		return err
	}

	c.mu.Lock()
	var storedOrder []int64
	if c.sequencer != nil {
		storedOrder = c.sequencer.Order()
	}
	c.sequencer = NewQuestionSequencer(set.QuestionIDs, storedOrder, c.rng)
	c.answers = NewAnswerSyncer(c.api, examSerial)

	duration := time.Duration(set.DurationMinutes) * time.Minute
	c.timer = NewCountdownTimer(c.clock, set.StartTime, duration, c.onExpire)
	timer := c.timer
	c.state = StateActive
	c.mu.Unlock()

	timer.Start()

	c.log.Info().
		Str("exam", examSerial).
		Int("questions", len(set.QuestionIDs)).
		Time("start", set.StartTime).
		Int("duration_minutes", set.DurationMinutes).
		Msg("exam active")
	return nil
}

// Questions returns the sequencer, or nil before StateActive.
func (c *SessionController) Questions() *QuestionSequencer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequencer
}

// Timer returns the countdown, or nil before StateActive.
func (c *SessionController) Timer() *CountdownTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer
}

// Answers returns the answer syncer, or nil before StateActive.
func (c *SessionController) Answers() *AnswerSyncer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers
}

// FetchQuestion loads one question's content and saved answer. Every
// navigation re-fetches the authoritative id set first, so a question added
// or removed mid-exam is picked up: the sequencer keeps the stored order
// when membership is unchanged and reshuffles otherwise. Saved selections
// are untouched either way, and an answer saved in a previous page load
// seeds the syncer's selection memory.
func (c *SessionController) FetchQuestion(ctx context.Context, questionID int64) (*QuestionDetail, error) {
	c.mu.Lock()
	if c.state != StateActive {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	examSerial := c.examSerial
	answers := c.answers
	sequencer := c.sequencer
	rng := c.rng
	c.mu.Unlock()

	set, err := c.api.GetQuestions(ctx, examSerial)
	if err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			c.finish(StateSubmitted)
		}
		return nil, err
	}
	if sequencer.Refresh(set.QuestionIDs, rng) {
		c.log.Info().
			Str("exam", examSerial).
			Int("questions", len(set.QuestionIDs)).
			Msg("question set changed, order reshuffled")
	}

	detail, err := c.api.GetQuestion(ctx, examSerial, questionID)
	if err != nil {
		return nil, err
	}
	if detail.AnswerID != 0 {
		answers.RecordSelection(questionID, detail.AnswerID)
	}
	return detail, nil
}

// SaveAnswer syncs one answer selection, honoring the per-question
// in-flight guard. ErrAlreadySubmitted from the server flips the session to
// its terminal state.
func (c *SessionController) SaveAnswer(ctx context.Context, questionID, optionID int64) error {
	c.mu.Lock()
	if c.state != StateActive {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	answers := c.answers
	c.mu.Unlock()

	err := answers.Save(ctx, questionID, optionID)
	if errors.Is(err, ErrAlreadySubmitted) {
		c.finish(StateSubmitted)
	}
	return err
}

// Submit finishes the attempt explicitly. The countdown keeps running until
// the server confirms: a failed submit leaves the attempt active with the
// deadline still armed, so the participant can retry and expiry still closes
// the attempt if they never do.
func (c *SessionController) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	examSerial := c.examSerial
	c.mu.Unlock()

	err := c.api.Submit(ctx, examSerial)
	if err != nil && !errors.Is(err, ErrAlreadySubmitted) {
		return err
	}

	c.finish(StateSubmitted)
	c.log.Info().Str("exam", examSerial).Msg("attempt submitted")
	return nil
}

// onExpire runs on the countdown goroutine when the deadline passes: the
// attempt becomes StateExpired locally and a best-effort submit tells the
// server. A failure here is fine — the server enforces the deadline on its
// own clock anyway.
func (c *SessionController) onExpire() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	examSerial := c.examSerial
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), expirySubmitTimeout)
	defer cancel()
	if err := c.api.Submit(ctx, examSerial); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
		c.log.Warn().Err(err).Str("exam", examSerial).Msg("expiry submit failed")
	}

	c.finish(StateExpired)
	c.log.Info().Str("exam", examSerial).Msg("attempt expired")
}

// finish moves to a terminal state; the first terminal transition wins when
// explicit submit and expiry race each other. Stored credentials survive on
// purpose: the server rejects resubmission, so a reload after submit lands
// on the finished page instead of the credential form.
func (c *SessionController) finish(state SessionState) {
	c.mu.Lock()
	if c.state == StateSubmitted || c.state == StateExpired {
		c.mu.Unlock()
		return
	}
	timer := c.timer
	c.state = state
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
}

// Reset drops a finished attempt's credentials and returns to StateIdle, so
// a shared device can admit the next participant. Only valid from a terminal
// state; an in-progress attempt must be submitted or expire first.
func (c *SessionController) Reset() error {
	c.mu.Lock()
	if c.state != StateSubmitted && c.state != StateExpired {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	c.state = StateIdle
	c.examSerial = ""
	c.sequencer = nil
	c.timer = nil
	c.answers = nil
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("credential clear failed")
		return err
	}
	return nil
}

func (c *SessionController) installCredentials(creds Credentials) {
	if setter, ok := c.api.(interface{ SetToken(string) }); ok {
		setter.SetToken(creds.Token)
	}
	c.mu.Lock()
	c.examSerial = creds.ExamSerial
	c.mu.Unlock()
}
