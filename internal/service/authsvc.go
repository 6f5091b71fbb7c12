package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/metrics"
)

type AuthService struct {
	Users       UsersStore
	Tokens      *TokenService
	Mail        AccountMailer
	Revocations SessionRevocationStore
	SessionTTL  time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
	Metrics     metrics.Recorder
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Authenticate decides the outcome of a credentials sign-in. Negative
// outcomes are reported in the AuthOutcome; the error is reserved for store
// and delivery failures.
//
// When a code is supplied for an account with two-factor enabled, only the
// code is checked. Callers must make sure the code step follows a password
// step for the same email.
func (s *AuthService) Authenticate(ctx context.Context, email, password, twoFactorCode string) (domain.AuthOutcome, error) {
	out, err := s.authenticate(ctx, email, password, twoFactorCode)
	if err == nil {
		metrics.OrNop(s.Metrics).RecordAuthOutcome(string(out.Kind))
	}
	return out, err
}

func (s *AuthService) authenticate(ctx context.Context, email, password, twoFactorCode string) (domain.AuthOutcome, error) {
	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			auth.CompareDummyPassword(password)
			return domain.Failed(domain.OutcomeInvalidCredentials), nil
		}
		return domain.AuthOutcome{}, storeFailure("authenticate: get user", err)
	}

	if twoFactorCode != "" && u.IsTwoFactorEnabled {
		_, err := s.Tokens.ConsumeTwoFactor(ctx, u.Email, twoFactorCode)
		switch {
		case errors.Is(err, domain.ErrTokenNotFound):
			return domain.Failed(domain.OutcomeInvalidTwoFactorCode), nil
		case errors.Is(err, domain.ErrTokenExpired):
			return domain.Failed(domain.OutcomeTwoFactorCodeExpired), nil
		case err != nil:
			return domain.AuthOutcome{}, err
		}
		return s.succeed(ctx, u), nil
	}

	if password == "" || !u.HasPassword() {
		return domain.Failed(domain.OutcomeInvalidCredentials), nil
	}
	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		s.logger().Error("verify password failed", "user_id", u.ID, "err", err)
		return domain.Failed(domain.OutcomeInvalidCredentials), nil
	}
	if !ok {
		return domain.Failed(domain.OutcomeInvalidCredentials), nil
	}
	if auth.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u.ID, password)
	}

	if !u.HasVerifiedEmail() {
		return domain.Failed(domain.OutcomeEmailNotVerified), nil
	}

	if u.IsTwoFactorEnabled {
		tok, err := s.Tokens.Issue(ctx, domain.TokenTwoFactor, u.Email)
		if err != nil {
			return domain.AuthOutcome{}, err
		}
		if err := s.Mail.SendTwoFactorCode(ctx, u.Email, tok.Token); err != nil {
			return domain.AuthOutcome{}, err
		}
		return domain.TwoFactorChallenge(u.Email), nil
	}

	return s.succeed(ctx, u), nil
}

func (s *AuthService) succeed(ctx context.Context, u domain.UserWithPassword) domain.AuthOutcome {
	if err := s.Users.SetLastLogin(ctx, u.ID, s.now()); err != nil {
		s.logger().Warn("set last login failed", "user_id", u.ID, "err", err)
	}
	return domain.Succeeded(domain.IdentityFromUser(u.User))
}

func (s *AuthService) rehash(ctx context.Context, userID, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.Users.SetPasswordHash(ctx, userID, hash, s.now())
	}
	if err != nil {
		s.logger().Warn("password rehash failed", "user_id", userID, "err", err)
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an unverified USER account and emails a verification
// link. The account exists even if the email could not be sent.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if len([]rune(name)) < 2 {
		return domain.User{}, domain.NewValidationError(map[string]string{"name": "must be at least 2 characters"})
	}
	if len(in.Password) < 8 {
		return domain.User{}, domain.NewValidationError(map[string]string{"password": "must be at least 8 characters"})
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.Users.CreateUser(ctx, domain.NewUser{
		Email:        in.Email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyInUse) {
			return domain.User{}, err
		}
		return domain.User{}, storeFailure("register: create user", err)
	}

	tok, err := s.Tokens.Issue(ctx, domain.TokenVerification, u.Email)
	if err != nil {
		return u, err
	}
	if err := s.Mail.SendVerification(ctx, u.Email, tok.Token); err != nil {
		return u, err
	}
	return u, nil
}

// NewSession mints the session for a successfully authenticated identity.
func (s *AuthService) NewSession(id domain.Identity) domain.Session {
	return auth.SessionFromIdentity(id, s.now(), s.SessionTTL)
}

// CheckSession rejects sessions that were signed out before they expired.
func (s *AuthService) CheckSession(ctx context.Context, sess domain.Session) error {
	if !s.now().Before(sess.ExpiresAt) {
		return domain.ErrUnauthorized
	}
	if s.Revocations == nil {
		return nil
	}
	revoked, err := s.Revocations.IsSessionRevoked(ctx, sess.ID)
	if err != nil {
		return storeFailure("check session", err)
	}
	if revoked {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *AuthService) Logout(ctx context.Context, sess domain.Session) error {
	if s.Revocations == nil {
		return nil
	}
	if err := s.Revocations.RevokeSession(ctx, sess, s.now()); err != nil {
		return storeFailure("logout", err)
	}
	return nil
}

// PurgeExpired drops session revocations and one-time tokens past their
// expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) error {
	if s.Revocations != nil {
		n, err := s.Revocations.DeleteExpiredRevocations(ctx, s.now())
		if err != nil {
			return storeFailure("purge revocations", err)
		}
		if n > 0 {
			s.logger().Info("purged session revocations", "count", n)
		}
	}
	n, err := s.Tokens.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger().Info("purged expired tokens", "count", n)
	}
	return nil
}

// LoginWithExternal signs in through an OAuth provider. Provider sign-ins
// skip the email verification and two-factor checks. An existing account
// with the same email is linked only when the provider vouches for the
// address.
func (s *AuthService) LoginWithExternal(ctx context.Context, ext auth.ExternalIdentity) (domain.Identity, error) {
	if ext.Provider == "" || ext.Subject == "" {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	u, err := s.Users.GetUserByExternalAccount(ctx, ext.Provider, ext.Subject)
	if err == nil {
		s.touchLogin(ctx, u.ID)
		metrics.OrNop(s.Metrics).RecordAuthOutcome("oauth_" + ext.Provider)
		return domain.IdentityFromUser(u), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Identity{}, storeFailure("oauth: get external account", err)
	}

	if ext.Email == "" {
		return domain.Identity{}, domain.NewValidationError(map[string]string{"email": "provider did not share an email address"})
	}
	now := s.now()

	existing, err := s.Users.GetUserByEmail(ctx, ext.Email)
	switch {
	case err == nil:
		if !ext.EmailVerified {
			return domain.Identity{}, domain.ErrExternalAccountExists
		}
		if _, err := s.Users.LinkExternalAccount(ctx, existing.ID, ext.Provider, ext.Subject, ext.Email); err != nil {
			if errors.Is(err, domain.ErrExternalAccountExists) {
				return domain.Identity{}, err
			}
			return domain.Identity{}, storeFailure("oauth: link account", err)
		}
		if err := s.Users.MarkEmailVerified(ctx, existing.ID, now); err != nil {
			return domain.Identity{}, storeFailure("oauth: mark verified", err)
		}
		u = existing.User
		if u.EmailVerified == nil {
			u.EmailVerified = &now
		}
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.Users.CreateUserWithExternalAccount(ctx, domain.NewUser{
			Email:         ext.Email,
			Name:          strings.TrimSpace(ext.Name),
			Role:          domain.RoleUser,
			EmailVerified: &now,
		}, ext.Provider, ext.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrEmailAlreadyInUse) || errors.Is(err, domain.ErrExternalAccountExists) {
				return domain.Identity{}, err
			}
			return domain.Identity{}, storeFailure("oauth: create user", err)
		}
	default:
		return domain.Identity{}, storeFailure("oauth: get user", err)
	}

	s.touchLogin(ctx, u.ID)
	metrics.OrNop(s.Metrics).RecordAuthOutcome("oauth_" + ext.Provider)
	return domain.IdentityFromUser(u), nil
}

func (s *AuthService) touchLogin(ctx context.Context, userID string) {
	if err := s.Users.SetLastLogin(ctx, userID, s.now()); err != nil {
		s.logger().Warn("set last login failed", "user_id", userID, "err", err)
	}
}
