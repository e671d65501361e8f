package repository

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetBySerial retrieves an exam by its public serial.
func (r *ExamRepository) GetBySerial(ctx context.Context, serial string) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, serial, name, is_open, default_duration_minutes, created_at, updated_at
		 FROM exams
		 WHERE serial = $1`, serial,
	).Scan(&e.ID, &e.Serial, &e.Name, &e.IsOpen, &e.DefaultDurationMinutes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by its internal id.
func (r *ExamRepository) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, serial, name, is_open, default_duration_minutes, created_at, updated_at
		 FROM exams
		 WHERE id = $1`, id,
	).Scan(&e.ID, &e.Serial, &e.Name, &e.IsOpen, &e.DefaultDurationMinutes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
