package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ivolkov/cartd/internal/errs"
	"github.com/ivolkov/cartd/internal/model"
)

// GuestRepo implements GuestRepository using PostgreSQL.
type GuestRepo struct{ db *DB }

// NewGuestRepo constructs a guest repository.
func NewGuestRepo(db *DB) *GuestRepo { return &GuestRepo{db: db} }

// Create inserts a new guest row.
func (r *GuestRepo) Create(ctx context.Context, g *model.Guest) error {
	const q = `
INSERT INTO guests (id, session_token, expires_at)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, g.ID, g.SessionToken, g.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByToken selects a guest by session token.
func (r *GuestRepo) GetByToken(ctx context.Context, tok string) (*model.Guest, error) {
	const q = `
SELECT id, session_token, expires_at, created_at
FROM guests WHERE session_token=$1`
	row := r.db.Pool.QueryRow(ctx, q, tok)
	var g model.Guest
	if err := row.Scan(&g.ID, &g.SessionToken, &g.ExpiresAt, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}
