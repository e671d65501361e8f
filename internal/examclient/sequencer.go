package examclient

import (
	"math/rand"
	"sync"
)

// QuestionSequencer owns the participant's presentation order over the
// server's question id set. The order is shuffled once per attempt and then
// held stable: rebuilding the sequencer with a stored order and an unchanged
// id set reuses that order, so a reload never reshuffles mid-exam.
type QuestionSequencer struct {
	mu    sync.Mutex
	order []int64
	pos   int // 0-based index into order
}

// NewQuestionSequencer builds a sequencer over ids. storedOrder, when it is
// a permutation of exactly the same id set, wins over a fresh shuffle. rng
// may be nil, in which case the global source is used.
func NewQuestionSequencer(ids []int64, storedOrder []int64, rng *rand.Rand) *QuestionSequencer {
	order := make([]int64, len(ids))

	if sameIDSet(ids, storedOrder) {
		copy(order, storedOrder)
	} else {
		copy(order, ids)
		shuffle(order, rng)
	}

	return &QuestionSequencer{order: order}
}

// Refresh reconciles the order with a freshly fetched id set. An unchanged
// set keeps the order and position verbatim; a changed set (question added
// or removed mid-exam) gets a new shuffle, with the position clamped into
// the new range. Reports whether a reshuffle happened.
func (s *QuestionSequencer) Refresh(ids []int64, rng *rand.Rand) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sameIDSet(ids, s.order) {
		return false
	}

	s.order = make([]int64, len(ids))
	copy(s.order, ids)
	shuffle(s.order, rng)

	if s.pos > len(s.order)-1 {
		s.pos = len(s.order) - 1
	}
	if s.pos < 0 {
		s.pos = 0
	}
	return true
}

// Order returns a copy of the presentation order, for persistence.
func (s *QuestionSequencer) Order() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Count returns the number of questions.
func (s *QuestionSequencer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Current returns the question id at the current position, or 0 when the
// set is empty.
func (s *QuestionSequencer) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return 0
	}
	return s.order[s.pos]
}

// Position returns the 1-based position of the current question, or 0 when
// the set is empty.
func (s *QuestionSequencer) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return 0
	}
	return s.pos + 1
}

// Next advances one question and returns the new current id. At the last
// question it stays put.
func (s *QuestionSequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.order)-1 {
		s.pos++
	}
	if len(s.order) == 0 {
		return 0
	}
	return s.order[s.pos]
}

// Prev steps back one question and returns the new current id. At the first
// question it stays put.
func (s *QuestionSequencer) Prev() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos > 0 {
		s.pos--
	}
	if len(s.order) == 0 {
		return 0
	}
	return s.order[s.pos]
}

// JumpTo moves to a 1-based position, clamped into range, and returns the
// id there.
func (s *QuestionSequencer) JumpTo(pos int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return 0
	}
	idx := pos - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.order)-1 {
		idx = len(s.order) - 1
	}
	s.pos = idx
	return s.order[s.pos]
}

// shuffle is an in-place Fisher–Yates.
func shuffle(ids []int64, rng *rand.Rand) {
	swap := func(i, j int) { ids[i], ids[j] = ids[j], ids[i] }
	if rng != nil {
		rng.Shuffle(len(ids), swap)
	} else {
		rand.Shuffle(len(ids), swap)
	}
}

// sameIDSet reports whether a and b contain exactly the same ids,
// regardless of order. Duplicates count.
func sameIDSet(a, b []int64) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	counts := make(map[int64]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
