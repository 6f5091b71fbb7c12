package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
)

type ResetUsersStore interface {
	SetPasswordHash(ctx context.Context, userID, passwordHash string, when time.Time) error
}

type PasswordResetService struct {
	Tokens *TokenService
	Users  ResetUsersStore
	Mail   AccountMailer
	Now    func() time.Time
}

func (s *PasswordResetService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// RequestPasswordReset issues a reset token and emails the link. Unknown
// emails yield domain.ErrUserNotFound; callers facing the public decide
// whether to reveal that.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	tok, err := s.Tokens.Issue(ctx, domain.TokenPasswordReset, email)
	if err != nil {
		return err
	}
	return s.Mail.SendPasswordReset(ctx, tok.Email, tok.Token)
}

// CompletePasswordReset sets a new password for the owner of token and
// consumes it.
func (s *PasswordResetService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.NewValidationError(map[string]string{"password": "must be at least 8 characters"})
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.Tokens.Consume(ctx, domain.TokenPasswordReset, token, func(ctx context.Context, tok domain.OneTimeToken) error {
		if err := s.Users.SetPasswordHash(ctx, tok.UserID, hash, s.now()); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return storeFailure("reset password: set hash", err)
		}
		return nil
	})
	return err
}
