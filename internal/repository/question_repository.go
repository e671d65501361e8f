package repository

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question and option data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListRefsByExamID returns the ids of all questions belonging to an exam.
// Ordering is by order_num for determinism, but clients derive their own
// presentation order.
func (r *QuestionRepository) ListRefsByExamID(ctx context.Context, examID int64) ([]model.QuestionRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM questions WHERE exam_id = $1 ORDER BY order_num ASC, id ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []model.QuestionRef{}
	for rows.Next() {
		var ref model.QuestionRef
		if err := rows.Scan(&ref.ID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// GetByID retrieves a question by id.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, data, order_num FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.ExamID, &q.Data, &q.OrderNum)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListOptionsByQuestionID returns a question's options.
func (r *QuestionRepository) ListOptionsByQuestionID(ctx context.Context, questionID int64) ([]*model.McqOption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, description, point
		 FROM mcq_options
		 WHERE question_id = $1
		 ORDER BY id ASC`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opts := []*model.McqOption{}
	for rows.Next() {
		o := &model.McqOption{}
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Description, &o.Point); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// GetOptionByID retrieves a single option.
func (r *QuestionRepository) GetOptionByID(ctx context.Context, id int64) (*model.McqOption, error) {
	o := &model.McqOption{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_id, description, point FROM mcq_options WHERE id = $1`, id,
	).Scan(&o.ID, &o.QuestionID, &o.Description, &o.Point)
	if err != nil {
		return nil, err
	}
	return o, nil
}
