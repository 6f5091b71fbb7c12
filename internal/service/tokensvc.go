package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/metrics"
)

const maxIssueAttempts = 3

// TokenService owns the lifecycle of one-time tokens: at most one live token
// per purpose and email, each usable exactly once.
type TokenService struct {
	Store   TokensStore
	Users   TokenUsersStore
	Now     func() time.Time
	Metrics metrics.Recorder

	// NewValue generates token values; defaults to auth.NewTokenValue.
	NewValue func(domain.TokenPurpose) (string, error)
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Issue creates a token for the user registered under email, replacing any
// live token of the same purpose. The returned token carries the plaintext
// value.
func (s *TokenService) Issue(ctx context.Context, purpose domain.TokenPurpose, email string) (domain.OneTimeToken, error) {
	if !purpose.Valid() {
		return domain.OneTimeToken{}, fmt.Errorf("issue token: unknown purpose %q", purpose)
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.OneTimeToken{}, domain.ErrUserNotFound
		}
		return domain.OneTimeToken{}, storeFailure("issue token: get user", err)
	}

	newValue := s.NewValue
	if newValue == nil {
		newValue = auth.NewTokenValue
	}

	now := s.now()
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := newValue(purpose)
		if err != nil {
			return domain.OneTimeToken{}, err
		}

		saved, err := s.Store.UpsertToken(ctx, domain.OneTimeToken{
			Purpose:   purpose,
			TokenHash: HashTokenValue(value),
			Email:     u.Email,
			UserID:    u.ID,
			ExpiresAt: now.Add(auth.TokenTTL(purpose)),
			CreatedAt: now,
		})
		if errors.Is(err, domain.ErrTokenCollision) {
			continue
		}
		if err != nil {
			return domain.OneTimeToken{}, storeFailure("issue token: upsert", err)
		}

		saved.Token = value
		metrics.OrNop(s.Metrics).RecordTokenIssued(string(purpose))
		return saved, nil
	}
	return domain.OneTimeToken{}, storeFailure("issue token", domain.ErrTokenCollision)
}

// UseFunc is the mutation paired with redeeming a token. It must do its
// store writes with the ctx it is given.
type UseFunc func(ctx context.Context, tok domain.OneTimeToken) error

// Consume redeems a token by value. Expired tokens are deleted and reported
// as ErrTokenExpired. The token is claimed and use applied together, so use
// runs for exactly one consumer; if use fails the claim is undone and the
// token can be redeemed again.
func (s *TokenService) Consume(ctx context.Context, purpose domain.TokenPurpose, value string, use UseFunc) (domain.OneTimeToken, error) {
	return s.consume(ctx, purpose, value, "", use)
}

// ConsumeTwoFactor redeems a two-factor code issued to email.
func (s *TokenService) ConsumeTwoFactor(ctx context.Context, email, code string) (domain.OneTimeToken, error) {
	return s.consume(ctx, domain.TokenTwoFactor, code, email, nil)
}

func (s *TokenService) consume(ctx context.Context, purpose domain.TokenPurpose, value, email string, use UseFunc) (domain.OneTimeToken, error) {
	rec := metrics.OrNop(s.Metrics)
	if value == "" {
		rec.RecordTokenConsumed(string(purpose), "not_found")
		return domain.OneTimeToken{}, domain.ErrTokenNotFound
	}

	tok, err := s.Store.GetTokenByHash(ctx, purpose, HashTokenValue(value))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			rec.RecordTokenConsumed(string(purpose), "not_found")
			return domain.OneTimeToken{}, domain.ErrTokenNotFound
		}
		return domain.OneTimeToken{}, storeFailure("consume token: get", err)
	}
	if email != "" && tok.Email != email {
		rec.RecordTokenConsumed(string(purpose), "not_found")
		return domain.OneTimeToken{}, domain.ErrTokenNotFound
	}

	if tok.Expired(s.now()) {
		if err := s.Store.DeleteToken(ctx, tok.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.OneTimeToken{}, storeFailure("consume token: delete expired", err)
		}
		rec.RecordTokenConsumed(string(purpose), "expired")
		return tok, domain.ErrTokenExpired
	}

	var (
		claimed bool
		useErr  error
	)
	err = s.Store.ClaimToken(ctx, tok.ID, func(ctx context.Context) error {
		claimed = true
		if use != nil {
			useErr = use(ctx, tok)
		}
		return useErr
	})
	switch {
	case err == nil:
	case useErr != nil:
		return tok, useErr
	case !claimed && errors.Is(err, domain.ErrNotFound):
		rec.RecordTokenConsumed(string(purpose), "not_found")
		return domain.OneTimeToken{}, domain.ErrTokenNotFound
	default:
		return domain.OneTimeToken{}, storeFailure("consume token: claim", err)
	}
	rec.RecordTokenConsumed(string(purpose), "ok")
	return tok, nil
}

// PurgeExpired removes tokens that can no longer be redeemed.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.Store.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, storeFailure("purge tokens", err)
	}
	return n, nil
}

// HashTokenValue is the form in which token values are stored and looked
// up.
func HashTokenValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
