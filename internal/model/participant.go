package model

import (
	"time"
)

// Participant is one registered exam taker for one exam. StartedAt and
// AllowedDurationMinutes are written exactly once, by the first proctor
// authorization, and never change afterwards.
type Participant struct {
	ID                     int64      `json:"id"`
	ExamID                 int64      `json:"-"`
	Name                   string     `json:"name"`
	PasswordHash           *string    `json:"-"`
	StartedAt              *time.Time `json:"started_at,omitempty"`
	EndedAt                *time.Time `json:"ended_at,omitempty"`
	AllowedDurationMinutes int        `json:"allowed_duration_minutes"`
}

// Deadline returns the instant the participant's exam window closes, or nil
// when the exam has not been started by an authorization yet.
func (p *Participant) Deadline() *time.Time {
	if p.StartedAt == nil {
		return nil
	}
	d := p.StartedAt.Add(time.Duration(p.AllowedDurationMinutes) * time.Minute)
	return &d
}

// IsSubmitted reports whether the attempt is over at the given instant,
// either by an explicit submit (EndedAt) or by running out the clock.
// The server is the timeout authority; clients only mirror this rule.
func (p *Participant) IsSubmitted(now time.Time) bool {
	if p.EndedAt != nil {
		return true
	}
	if d := p.Deadline(); d != nil && d.Before(now) {
		return true
	}
	return false
}

// StartExamRequest is the admission payload for a participant.
type StartExamRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=255"`
	Password string `json:"password" binding:"omitempty,max=255"`
}

// StartExamResponse carries the per-attempt exam token and the session
// serial the participant displays for proctor scanning.
type StartExamResponse struct {
	Token         string `json:"token"`
	SessionSerial string `json:"session"`
}
