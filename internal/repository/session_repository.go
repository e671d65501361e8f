package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles participant session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new participant session. Serial must already be set.
func (r *SessionRepository) Create(ctx context.Context, s *model.ParticipantSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO participant_sessions (serial, participant_id)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		s.Serial, s.ParticipantID,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetBySerial retrieves a session by its scannable serial.
func (r *SessionRepository) GetBySerial(ctx context.Context, serial string) (*model.ParticipantSession, error) {
	s := &model.ParticipantSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, serial, participant_id, is_authorized, created_at, updated_at
		 FROM participant_sessions
		 WHERE serial = $1`, serial,
	).Scan(&s.ID, &s.Serial, &s.ParticipantID, &s.IsAuthorized, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetLatestAuthorizedByParticipantID retrieves the participant's most
// recently authorized session, if any. Only this session's serial is valid
// for exam access.
func (r *SessionRepository) GetLatestAuthorizedByParticipantID(ctx context.Context, participantID int64) (*model.ParticipantSession, error) {
	s := &model.ParticipantSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, serial, participant_id, is_authorized, created_at, updated_at
		 FROM participant_sessions
		 WHERE participant_id = $1 AND is_authorized
		 ORDER BY updated_at DESC
		 LIMIT 1`, participantID,
	).Scan(&s.ID, &s.Serial, &s.ParticipantID, &s.IsAuthorized, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Authorize marks the session authorized, and — when startExam is true —
// stamps the participant's start window in the same transaction so that
// started_at and allowed_duration_minutes are set exactly once.
func (r *SessionRepository) Authorize(ctx context.Context, serial string, participantID int64, startExam bool, durationMinutes int, startedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE participant_sessions
		 SET is_authorized = TRUE, updated_at = NOW()
		 WHERE serial = $1`, serial,
	)
	if err != nil {
		return fmt.Errorf("authorize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if startExam {
		_, err = tx.Exec(ctx,
			`UPDATE participants
			 SET started_at = $2, allowed_duration_minutes = $3
			 WHERE id = $1 AND started_at IS NULL`,
			participantID, startedAt, durationMinutes,
		)
		if err != nil {
			return fmt.Errorf("stamp start window: %w", err)
		}
	}

	return tx.Commit(ctx)
}
