package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AuthPortalwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokensStore struct {
	pool *pgxpool.Pool
}

func NewTokensStore(pool *pgxpool.Pool) *TokensStore {
	return &TokensStore{pool: pool}
}

func scanToken(row scanner) (domain.OneTimeToken, error) {
	var (
		tok        domain.OneTimeToken
		idUUID     pgtype.UUID
		userIDUUID pgtype.UUID
		purpose    string
	)
	err := row.Scan(
		&idUUID,
		&purpose,
		&tok.TokenHash,
		&tok.Email,
		&userIDUUID,
		&tok.ExpiresAt,
		&tok.CreatedAt,
	)
	if err != nil {
		return domain.OneTimeToken{}, err
	}
	tok.ID = uuidOrEmpty(idUUID)
	tok.UserID = uuidOrEmpty(userIDUUID)
	tok.Purpose = domain.TokenPurpose(purpose)
	return tok, nil
}

// UpsertToken keeps at most one live token per (purpose, email); issuing a
// new one replaces the old row, including its id.
func (s *TokensStore) UpsertToken(ctx context.Context, tok domain.OneTimeToken) (domain.OneTimeToken, error) {
	const q = `
		INSERT INTO one_time_tokens (purpose, token_hash, email, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (purpose, email) DO UPDATE
		SET id = gen_random_uuid(),
		    token_hash = EXCLUDED.token_hash,
		    user_id = EXCLUDED.user_id,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
		RETURNING id, purpose, token_hash, email, user_id, expires_at, created_at
	`

	var userID any
	if uid, ok := parseUUID(tok.UserID); ok {
		userID = uid
	}
	saved, err := scanToken(s.pool.QueryRow(ctx, q,
		string(tok.Purpose),
		tok.TokenHash,
		tok.Email,
		userID,
		tok.ExpiresAt,
		tok.CreatedAt,
	))
	if err != nil {
		if name, ok := uniqueConstraint(err); ok && name == "one_time_tokens_hash_uq" {
			return domain.OneTimeToken{}, domain.ErrTokenCollision
		}
		return domain.OneTimeToken{}, fmt.Errorf("upsert token: %w", err)
	}
	return saved, nil
}

func (s *TokensStore) GetTokenByHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (domain.OneTimeToken, error) {
	const q = `
		SELECT id, purpose, token_hash, email, user_id, expires_at, created_at
		FROM one_time_tokens
		WHERE purpose = $1 AND token_hash = $2
	`
	tok, err := scanToken(s.pool.QueryRow(ctx, q, string(purpose), tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OneTimeToken{}, domain.ErrNotFound
		}
		return domain.OneTimeToken{}, fmt.Errorf("get token: %w", err)
	}
	return tok, nil
}

// DeleteToken reports ErrNotFound when another caller already removed the
// row.
func (s *TokensStore) DeleteToken(ctx context.Context, id string) error {
	uid, ok := parseUUID(id)
	if !ok {
		return domain.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM one_time_tokens WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimToken deletes the row and runs use in one transaction. A concurrent
// claimer blocks on the row lock and then finds nothing to delete; a failed
// use rolls the delete back.
func (s *TokensStore) ClaimToken(ctx context.Context, id string, use func(ctx context.Context) error) error {
	uid, ok := parseUUID(id)
	if !ok {
		return domain.ErrNotFound
	}
	return inTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		var claimed pgtype.UUID
		err := tx.QueryRow(ctx, `DELETE FROM one_time_tokens WHERE id = $1 RETURNING id`, uid).Scan(&claimed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("claim token: %w", err)
		}
		if use == nil {
			return nil
		}
		return use(ctx)
	})
}

func (s *TokensStore) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM one_time_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
