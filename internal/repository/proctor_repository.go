package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Proctor is a proctor account row.
type Proctor struct {
	ID           int64
	Username     string
	PasswordHash string
}

// ProctorRepository handles proctor account data access.
type ProctorRepository struct {
	pool *pgxpool.Pool
}

// NewProctorRepository creates a new ProctorRepository.
func NewProctorRepository(pool *pgxpool.Pool) *ProctorRepository {
	return &ProctorRepository{pool: pool}
}

// GetByUsername retrieves a proctor by username.
func (r *ProctorRepository) GetByUsername(ctx context.Context, username string) (*Proctor, error) {
	p := &Proctor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM proctors WHERE username = $1`, username,
	).Scan(&p.ID, &p.Username, &p.PasswordHash)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a proctor account. Used by the bootstrap CLI.
func (r *ProctorRepository) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO proctors (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&id)
	return id, err
}
