package examclient

import (
	"context"
	"errors"
	"sync"
)

// ErrSaveInFlight is returned when a save for the same question is already
// running. The caller keeps the controls locked and retries after the
// current save settles.
var ErrSaveInFlight = errors.New("save already in flight for this question")

// AnswerSyncer pushes answer selections to the server with a per-question
// in-flight guard, so a double click cannot race two writes for one
// question. Saves for different questions proceed independently. It also
// remembers the last acknowledged selection per question, so navigation can
// re-render a question without a round trip.
type AnswerSyncer struct {
	api        SessionAPI
	examSerial string

	mu         sync.Mutex
	inFlight   map[int64]bool
	selections map[int64]int64
}

// NewAnswerSyncer creates an AnswerSyncer for one attempt.
func NewAnswerSyncer(api SessionAPI, examSerial string) *AnswerSyncer {
	return &AnswerSyncer{
		api:        api,
		examSerial: examSerial,
		inFlight:   make(map[int64]bool),
		selections: make(map[int64]int64),
	}
}

// Save sends one answer selection. It blocks until the server acknowledges
// or rejects the write. A concurrent Save for the same question returns
// ErrSaveInFlight without touching the network.
func (s *AnswerSyncer) Save(ctx context.Context, questionID, optionID int64) error {
	s.mu.Lock()
	if s.inFlight[questionID] {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.inFlight[questionID] = true
	s.mu.Unlock()

	err := s.api.SaveAnswer(ctx, s.examSerial, questionID, optionID)

	s.mu.Lock()
	delete(s.inFlight, questionID)
	if err == nil {
		s.selections[questionID] = optionID
	}
	s.mu.Unlock()

	return err
}

// Saving reports whether a save for the question is currently in flight.
// UIs use this to disable the question's controls.
func (s *AnswerSyncer) Saving(questionID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[questionID]
}

// Selection returns the last acknowledged option for the question, or false
// when the participant has not answered it yet in this controller lifetime.
func (s *AnswerSyncer) Selection(questionID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	optionID, ok := s.selections[questionID]
	return optionID, ok
}

// RecordSelection seeds the remembered selection for a question, used when a
// fetched question carries an answer saved in a previous page load.
func (s *AnswerSyncer) RecordSelection(questionID, optionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[questionID] = optionID
}
