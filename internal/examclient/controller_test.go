package examclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func activeController(t *testing.T, api *fakeAPI, clock *fakeClock) (*SessionController, *MemoryCredentialStore) {
	t.Helper()
	store := NewMemoryCredentialStore()
	c := NewSessionController(api, clock, store, zerolog.Nop())

	if _, err := c.Start(context.Background(), "EXAM-1", "Budi", ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.AwaitAuthorization(context.Background()); err != nil {
		t.Fatalf("AwaitAuthorization failed: %v", err)
	}
	if got := c.State(); got != StateActive {
		t.Fatalf("state = %s, want ACTIVE", got)
	}
	return c, store
}

func waitState(t *testing.T, c *SessionController, want SessionState) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if c.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("state = %s, want %s", c.State(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestControllerHappyPath(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	api := &fakeAPI{
		getQuestionsFn: func(ctx context.Context, examSerial string) (*QuestionSet, error) {
			return &QuestionSet{
				QuestionIDs:     []int64{1, 2, 3, 4},
				StartTime:       start,
				DurationMinutes: 45,
			}, nil
		},
	}

	c, store := activeController(t, api, clock)

	if api.Token() != "tok" {
		t.Fatalf("token = %q, want tok", api.Token())
	}
	if creds, err := store.Load(); err == nil {
		// Credentials survive until a terminal state.
		if creds.SessionSerial != "sess" {
			t.Fatalf("stored session = %q, want sess", creds.SessionSerial)
		}
	} else {
		t.Fatalf("credentials missing while active: %v", err)
	}

	if got := c.Questions().Count(); got != 4 {
		t.Fatalf("question count = %d, want 4", got)
	}
	if got := c.Timer().Remaining(); got != 45*time.Minute {
		t.Fatalf("remaining = %v, want 45m", got)
	}
}

func TestControllerSubmit(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	var submits atomic.Int64
	api := &fakeAPI{
		getQuestionsFn: func(ctx context.Context, examSerial string) (*QuestionSet, error) {
			return &QuestionSet{QuestionIDs: []int64{1}, StartTime: start, DurationMinutes: 30}, nil
		},
		submitFn: func(ctx context.Context, examSerial string) error {
			submits.Add(1)
			return nil
		},
	}

	c, store := activeController(t, api, clock)

	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if got := c.State(); got != StateSubmitted {
		t.Fatalf("state = %s, want SUBMITTED", got)
	}
	if got := submits.Load(); got != 1 {
		t.Fatalf("submit calls = %d, want 1", got)
	}
	// Credentials survive submission: the server rejects resubmission, and a
	// reload should land on the finished page, not the credential form.
	if _, err := store.Load(); err != nil {
		t.Fatalf("credentials dropped on submit: %v", err)
	}

	// Terminal: nothing else goes through.
	if err := c.SaveAnswer(context.Background(), 1, 10); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("SaveAnswer after submit = %v, want ErrInvalidState", err)
	}
	if err := c.Submit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Submit = %v, want ErrInvalidState", err)
	}

	// Reset hands the device to the next participant.
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("state after Reset = %s, want IDLE", got)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("credentials survived Reset: %v", err)
	}
}

func TestControllerSubmitFailureKeepsDeadlineArmed(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	var submits atomic.Int64
	api := &fakeAPI{
		getQuestionsFn: func(ctx context.Context, examSerial string) (*QuestionSet, error) {
			return &QuestionSet{QuestionIDs: []int64{1}, StartTime: start, DurationMinutes: 1}, nil
		},
		submitFn: func(ctx context.Context, examSerial string) error {
			if submits.Add(1) == 1 {
				return ErrServer
			}
			return nil
		},
	}

	c, _ := activeController(t, api, clock)

	// A transient submit failure keeps the attempt active and, crucially,
	// the countdown armed.
	if err := c.Submit(context.Background()); !errors.Is(err, ErrServer) {
		t.Fatalf("Submit = %v, want ErrServer", err)
	}
	if got := c.State(); got != StateActive {
		t.Fatalf("state after failed submit = %s, want ACTIVE", got)
	}

	// The deadline still closes the attempt and issues the expiry submit.
	clock.Advance(5 * time.Minute)
	waitState(t, c, StateExpired)
	if got := submits.Load(); got != 2 {
		t.Fatalf("submit calls = %d, want 2", got)
	}
}

func TestControllerExpiryTriggersBestEffortSubmit(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	var submits atomic.Int64
	api := &fakeAPI{
		getQuestionsFn: func(ctx context.Context, examSerial string) (*QuestionSet, error) {
			return &QuestionSet{QuestionIDs: []int64{1}, StartTime: start, DurationMinutes: 1}, nil
		},
		submitFn: func(ctx context.Context, examSerial string) error {
			submits.Add(1)
			return nil
		},
	}

	c, _ := activeController(t, api, clock)

	clock.Advance(2 * time.Minute)
	waitState(t, c, StateExpired)

	if got := submits.Load(); got != 1 {
		t.Fatalf("submit calls = %d, want 1", got)
	}
}

func TestControllerExpirySubmitFailureStillExpires(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	api := &fakeAPI{
		getQuestionsFn: func(ctx context.Context, examSerial string) (*QuestionSet, error) {
			return &QuestionSet{QuestionIDs: []int64{1}, StartTime: start, DurationMinutes: 1}, nil
		},
		submitFn: func(ctx context.Context, examSerial string) error {
			return ErrServer
		},
	}

	c, _ := activeController(t, api, clock)

	clock.Advance(2 * time.Minute)
	waitState(t, c, StateExpired)
}

func TestControllerAlreadySubmittedDuringWait(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	api := &fakeAPI{
		checkFn: func(ctx context.Context, examSerial string) error {
			return ErrAlreadySubmitted
		},
	}

	store := NewMemoryCredentialStore()
	c := NewSessionController(api, clock, store, zerolog.Nop())
	if _, err := c.Start(context.Background(), "EXAM-1", "Budi", ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := c.AwaitAuthorization(context.Background()); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("AwaitAuthorization = %v, want ErrAlreadySubmitted", err)
	}
	if got := c.State(); got != StateSubmitted {
		t.Fatalf("state = %s, want SUBMITTED", got)
	}
}

func TestControllerStateGuards(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	api := &fakeAPI{}
	c := NewSessionController(api, clock, NewMemoryCredentialStore(), zerolog.Nop())

	if err := c.AwaitAuthorization(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("AwaitAuthorization while idle = %v, want ErrInvalidState", err)
	}
	if err := c.SaveAnswer(context.Background(), 1, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("SaveAnswer while idle = %v, want ErrInvalidState", err)
	}
	if _, err := c.FetchQuestion(context.Background(), 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("FetchQuestion while idle = %v, want ErrInvalidState", err)
	}
	if err := c.Reset(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Reset while idle = %v, want ErrInvalidState", err)
	}

	if _, err := c.Start(context.Background(), "EXAM-1", "Budi", ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := c.Start(context.Background(), "EXAM-1", "Budi", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Start = %v, want ErrInvalidState", err)
	}
}

func TestControllerNavigationRefetchesQuestionSet(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	var mu sync.Mutex
	ids := []int64{1, 2, 3}
	var fetches atomic.Int64
	api := &fakeAPI{
		getQuestionsFn: func(ctx context.Context, examSerial string) (*QuestionSet, error) {
			fetches.Add(1)
			mu.Lock()
			defer mu.Unlock()
			return &QuestionSet{
				QuestionIDs:     append([]int64(nil), ids...),
				StartTime:       start,
				DurationMinutes: 30,
			}, nil
		},
	}

	c, _ := activeController(t, api, clock)
	before := c.Questions().Order()

	for i := 0; i < 3; i++ {
		if _, err := c.FetchQuestion(context.Background(), 1); err != nil {
			t.Fatalf("FetchQuestion failed: %v", err)
		}
	}
	// One fetch entering the exam, then one per navigation.
	if got := fetches.Load(); got != 4 {
		t.Fatalf("question-set fetches = %d, want 4", got)
	}

	// Unchanged membership keeps the permutation verbatim.
	after := c.Questions().Order()
	if len(after) != len(before) {
		t.Fatalf("order length changed: %v -> %v", before, after)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("order reshuffled on stable set: %v -> %v", before, after)
		}
	}

	if err := c.SaveAnswer(context.Background(), 1, 10); err != nil {
		t.Fatalf("SaveAnswer failed: %v", err)
	}

	// A question appears mid-exam: the next navigation picks it up and
	// reshuffles, without touching saved selections.
	mu.Lock()
	ids = []int64{1, 2, 3, 4}
	mu.Unlock()

	if _, err := c.FetchQuestion(context.Background(), 1); err != nil {
		t.Fatalf("FetchQuestion failed: %v", err)
	}
	if got := c.Questions().Count(); got != 4 {
		t.Fatalf("question count = %d, want 4", got)
	}
	if got, ok := c.Answers().Selection(1); !ok || got != 10 {
		t.Fatalf("Selection(1) = %d, %v; want 10, true", got, ok)
	}
}

func TestControllerStartFailureLeavesIdle(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	api := &fakeAPI{
		startFn: func(ctx context.Context, examSerial, name, password string) (*StartResult, error) {
			return nil, ErrAlreadySubmitted
		},
	}

	store := NewMemoryCredentialStore()
	c := NewSessionController(api, clock, store, zerolog.Nop())

	if _, err := c.Start(context.Background(), "EXAM-1", "Budi", ""); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("Start = %v, want ErrAlreadySubmitted", err)
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("state = %s, want IDLE", got)
	}
	// Nothing is persisted on a failed admission.
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("store.Load after failed Start = %v, want ErrNoCredentials", err)
	}
}

func TestControllerFetchQuestionSeedsSelection(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	api := &fakeAPI{
		getQuestionsFn: func(ctx context.Context, examSerial string) (*QuestionSet, error) {
			return &QuestionSet{QuestionIDs: []int64{5}, StartTime: start, DurationMinutes: 30}, nil
		},
		getQuestionFn: func(ctx context.Context, examSerial string, questionID int64) (*QuestionDetail, error) {
			return &QuestionDetail{ID: questionID, AnswerID: 52}, nil
		},
	}

	c, _ := activeController(t, api, clock)

	if _, err := c.FetchQuestion(context.Background(), 5); err != nil {
		t.Fatalf("FetchQuestion failed: %v", err)
	}
	if got, ok := c.Answers().Selection(5); !ok || got != 52 {
		t.Fatalf("Selection(5) = %d, %v; want 52, true", got, ok)
	}
}

func TestControllerResume(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	api := &fakeAPI{}

	store := NewMemoryCredentialStore()
	if err := store.Save(Credentials{Token: "stored-tok", ExamSerial: "EXAM-9", SessionSerial: "sess-9"}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	c := NewSessionController(api, clock, store, zerolog.Nop())
	if err := c.Resume(context.Background()); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if got := c.State(); got != StatePendingAuthorization {
		t.Fatalf("state = %s, want PENDING_AUTHORIZATION", got)
	}
	if api.Token() != "stored-tok" {
		t.Fatalf("token = %q, want stored-tok", api.Token())
	}
	if got := c.ExamSerial(); got != "EXAM-9" {
		t.Fatalf("exam serial = %q, want EXAM-9", got)
	}
}

func TestControllerResumeWithoutCredentials(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	c := NewSessionController(&fakeAPI{}, clock, NewMemoryCredentialStore(), zerolog.Nop())

	if err := c.Resume(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Resume = %v, want ErrNoCredentials", err)
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("state = %s, want IDLE", got)
	}
}
