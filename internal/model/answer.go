package model

import "time"

// AnswerQueuePayload is one queued answer write, pushed to Redis on save and
// drained into Postgres by the answer worker.
type AnswerQueuePayload struct {
	ParticipantID int64     `json:"participant_id"`
	QuestionID    int64     `json:"question_id"`
	McqOptionID   int64     `json:"mcq_option_id"`
	QueuedAt      time.Time `json:"queued_at"`
}
