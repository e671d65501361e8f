package repository

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ParticipantRepository handles participant data access.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// GetByID retrieves a participant by id.
func (r *ParticipantRepository) GetByID(ctx context.Context, id int64) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, name, password_hash, started_at, ended_at, allowed_duration_minutes
		 FROM participants
		 WHERE id = $1`, id,
	).Scan(&p.ID, &p.ExamID, &p.Name, &p.PasswordHash, &p.StartedAt, &p.EndedAt, &p.AllowedDurationMinutes)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByExamIDAndName retrieves a participant by exam and registered name.
func (r *ParticipantRepository) GetByExamIDAndName(ctx context.Context, examID int64, name string) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, name, password_hash, started_at, ended_at, allowed_duration_minutes
		 FROM participants
		 WHERE exam_id = $1 AND name = $2`, examID, name,
	).Scan(&p.ID, &p.ExamID, &p.Name, &p.PasswordHash, &p.StartedAt, &p.EndedAt, &p.AllowedDurationMinutes)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SubmitOnce sets ended_at for a participant if and only if it is still
// unset. Returns true when this call performed the submit.
func (r *ParticipantRepository) SubmitOnce(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants
		 SET ended_at = NOW()
		 WHERE id = $1 AND ended_at IS NULL`, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
