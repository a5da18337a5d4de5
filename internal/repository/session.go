package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillcart/bookstore/internal/domain/auth"
)

const getSessionByHashSQL = `SELECT user_id, is_admin
	FROM sessions WHERE token_hash = $1`

var _ auth.Repository = (*SessionRepository)(nil)

// SessionRepository provides session lookups backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash looks up a session by its HMAC-SHA256 token hash.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Identity, error) {
	var id auth.Identity
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).Scan(&id.UserID, &id.Admin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, fmt.Errorf("finding session by hash: %w", err)
	}
	return &id, nil
}
