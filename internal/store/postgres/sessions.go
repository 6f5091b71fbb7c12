package postgres

import (
	"context"
	"fmt"
	"time"

	"AuthPortalwebserver/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RevocationsStore records signed-out sessions until their own expiry, after
// which the token is rejected on its exp claim anyway.
type RevocationsStore struct {
	pool *pgxpool.Pool
}

func NewRevocationsStore(pool *pgxpool.Pool) *RevocationsStore {
	return &RevocationsStore{pool: pool}
}

func (s *RevocationsStore) RevokeSession(ctx context.Context, sess domain.Session, when time.Time) error {
	const q = `
		INSERT INTO revoked_sessions (session_id, user_id, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO NOTHING
	`

	var userID any
	if uid, ok := parseUUID(sess.UserID); ok {
		userID = uid
	}
	if _, err := s.pool.Exec(ctx, q, sess.ID, userID, when, sess.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RevocationsStore) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE session_id = $1)`

	var revoked bool
	if err := s.pool.QueryRow(ctx, q, sessionID).Scan(&revoked); err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return revoked, nil
}

func (s *RevocationsStore) DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM revoked_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}
