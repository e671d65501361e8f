package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository handles the durable copy of participant answers. The hot
// path writes to Redis; the answer worker flushes into this table.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert creates or replaces a participant's answer for one question.
func (r *AnswerRepository) Upsert(ctx context.Context, participantID, questionID, mcqOptionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO participant_answers (participant_id, question_id, mcq_option_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (participant_id, question_id) DO UPDATE
		 SET mcq_option_id = EXCLUDED.mcq_option_id, answered_at = NOW()`,
		participantID, questionID, mcqOptionID,
	)
	return err
}

// Get returns the saved option id for a participant/question pair.
func (r *AnswerRepository) Get(ctx context.Context, participantID, questionID int64) (int64, error) {
	var optionID int64
	err := r.pool.QueryRow(ctx,
		`SELECT mcq_option_id FROM participant_answers
		 WHERE participant_id = $1 AND question_id = $2`,
		participantID, questionID,
	).Scan(&optionID)
	if err != nil {
		return 0, err
	}
	return optionID, nil
}
