package model

import (
	"encoding/json"
	"time"
)

// Question is a single exam question. Data is an opaque renderable blob
// (rich-text editor output) — the server never interprets it.
type Question struct {
	ID       int64           `json:"id"`
	ExamID   int64           `json:"-"`
	Data     json.RawMessage `json:"data"`
	OrderNum int             `json:"order_num"`
}

// McqOption is one selectable answer. Point is for report tooling only and
// must never be serialized towards participants.
type McqOption struct {
	ID          int64  `json:"id"`
	QuestionID  int64  `json:"-"`
	Description string `json:"description"`
	Point       int    `json:"-"`
}

// QuestionRef identifies a question within a session's set. Ordering is a
// client concern; the server only guarantees membership.
type QuestionRef struct {
	ID int64 `json:"id"`
}

// SessionQuestions is the authoritative question set plus the timing
// baseline the client countdown is reconstructed from.
type SessionQuestions struct {
	QuestionsIDList []QuestionRef `json:"questions_id_list"`
	StartTime       time.Time     `json:"start_time"`
	Duration        int           `json:"duration"`
}

// SessionQuestion is one question as served inside an active session:
// the blob, its options without points, and the current saved answer (0 if
// none).
type SessionQuestion struct {
	Question *Question    `json:"question"`
	Options  []*McqOption `json:"options"`
	AnswerID int64        `json:"answer"`
}

// SubmitAnswerRequest is the answer-save payload.
type SubmitAnswerRequest struct {
	McqOptionID int64 `json:"mcq_option_id" binding:"required"`
}
