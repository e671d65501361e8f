package model

import (
	"time"
)

// SessionStatus enumerates the lifecycle states of a participant session.
// The status is derived from the session row, the participant row and the
// clock — it is never stored, so there is no way to persist an impossible
// combination.
type SessionStatus string

const (
	SessionStatusCreated              SessionStatus = "CREATED"
	SessionStatusPendingAuthorization SessionStatus = "PENDING_AUTHORIZATION"
	SessionStatusAuthorized           SessionStatus = "AUTHORIZED"
	SessionStatusSubmitted            SessionStatus = "SUBMITTED"
	SessionStatusExpired              SessionStatus = "EXPIRED"
)

// ParticipantSession is one proctor-authorizable attempt handle. A
// participant may create several sessions (e.g. after a device swap); only
// the most recently authorized one is valid for taking the exam.
type ParticipantSession struct {
	ID            int64     `json:"-"`
	Serial        string    `json:"serial"`
	ParticipantID int64     `json:"participant_id"`
	IsAuthorized  bool      `json:"is_authorized"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DeriveSessionStatus computes the lifecycle state of a session at the given
// instant. Transitions are one-way: CREATED → PENDING_AUTHORIZATION →
// AUTHORIZED → SUBMITTED, or AUTHORIZED → EXPIRED via timeout.
func DeriveSessionStatus(sess *ParticipantSession, p *Participant, now time.Time) SessionStatus {
	if !sess.IsAuthorized {
		// A session that has been handed to a participant and is awaiting a
		// proctor is pending; the zero distinction with CREATED only exists
		// before the serial has ever been displayed.
		return SessionStatusPendingAuthorization
	}
	if p.EndedAt != nil {
		return SessionStatusSubmitted
	}
	if d := p.Deadline(); d != nil && d.Before(now) {
		return SessionStatusExpired
	}
	return SessionStatusAuthorized
}

// CheckSessionResponse is what a proctor sees after scanning a session serial.
type CheckSessionResponse struct {
	Status      SessionStatus `json:"status"`
	IsStartExam bool          `json:"is_start_exam"`
	IsSubmitted bool          `json:"is_submitted"`
	Participant *Participant  `json:"participant"`
	Exam        *PublicExam   `json:"exam"`
}

// AuthorizeSessionRequest is the proctor's approval payload. The duration may
// override the exam default for this participant.
type AuthorizeSessionRequest struct {
	AllowedDurationMinutes int `json:"allowed_duration_minutes" binding:"required,min=1,max=480"`
}

// MonitorEvent is published on the exam's Redis channel when a session
// changes state, and forwarded verbatim to proctor monitor sockets.
type MonitorEvent struct {
	Event           string    `json:"event"` // "authorized" or "submitted"
	ParticipantID   int64     `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	At              time.Time `json:"at"`
}
