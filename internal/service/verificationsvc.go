package service

import (
	"context"
	"errors"
	"time"

	"AuthPortalwebserver/internal/domain"
)

type VerificationUsersStore interface {
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	MarkEmailVerified(ctx context.Context, userID string, when time.Time) error
}

type VerificationService struct {
	Tokens *TokenService
	Users  VerificationUsersStore
	Mail   AccountMailer
	Now    func() time.Time
}

func (s *VerificationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// VerifyEmail consumes a verification token and marks the address
// verified. It returns the verified email.
func (s *VerificationService) VerifyEmail(ctx context.Context, token string) (string, error) {
	tok, err := s.Tokens.Consume(ctx, domain.TokenVerification, token, func(ctx context.Context, tok domain.OneTimeToken) error {
		if err := s.Users.MarkEmailVerified(ctx, tok.UserID, s.now()); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return storeFailure("verify email: mark verified", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return tok.Email, nil
}

// ResendVerification issues a fresh verification token, replacing any live
// one. Already verified accounts get nothing.
func (s *VerificationService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return storeFailure("resend verification: get user", err)
	}
	if u.HasVerifiedEmail() {
		return nil
	}

	tok, err := s.Tokens.Issue(ctx, domain.TokenVerification, u.Email)
	if err != nil {
		return err
	}
	return s.Mail.SendVerification(ctx, u.Email, tok.Token)
}
