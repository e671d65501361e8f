package model

import (
	"time"
)

// Exam represents an exam administered through the gate.
type Exam struct {
	ID                     int64     `json:"-"`
	Serial                 string    `json:"serial"`
	Name                   string    `json:"name"`
	IsOpen                 bool      `json:"is_open"`
	DefaultDurationMinutes int       `json:"default_duration_minutes"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// PublicExam is the subset of exam data exposed on the unauthenticated
// credential form and in proctor session checks. The default duration
// prefills the proctor's authorize form.
type PublicExam struct {
	Serial                 string `json:"serial"`
	Name                   string `json:"name"`
	DefaultDurationMinutes int    `json:"default_duration_minutes"`
}
