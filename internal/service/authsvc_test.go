package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
)

type stubUsersStore struct {
	t *testing.T

	createUserFunc             func(context.Context, domain.NewUser) (domain.User, error)
	getUserByIDFunc            func(context.Context, string) (domain.UserWithPassword, error)
	getUserByEmailFunc         func(context.Context, string) (domain.UserWithPassword, error)
	setLastLoginFunc           func(context.Context, string, time.Time) error
	setPasswordHashFunc        func(context.Context, string, string, time.Time) error
	markEmailVerifiedFunc      func(context.Context, string, time.Time) error
	getUserByExternalFunc      func(context.Context, string, string) (domain.User, error)
	linkExternalAccountFunc    func(context.Context, string, string, string, string) (domain.ExternalAccount, error)
	createUserWithExternalFunc func(context.Context, domain.NewUser, string, string) (domain.User, error)
}

func (s *stubUsersStore) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	if s.createUserFunc != nil {
		return s.createUserFunc(ctx, nu)
	}
	s.t.Fatalf("CreateUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByID(ctx context.Context, id string) (domain.UserWithPassword, error) {
	if s.getUserByIDFunc != nil {
		return s.getUserByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetUserByID called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	if s.getUserByEmailFunc != nil {
		return s.getUserByEmailFunc(ctx, email)
	}
	s.t.Fatalf("GetUserByEmail called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

func (s *stubUsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	if s.setLastLoginFunc != nil {
		return s.setLastLoginFunc(ctx, userID, when)
	}
	s.t.Fatalf("SetLastLogin called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) SetPasswordHash(ctx context.Context, userID, hash string, when time.Time) error {
	if s.setPasswordHashFunc != nil {
		return s.setPasswordHashFunc(ctx, userID, hash, when)
	}
	s.t.Fatalf("SetPasswordHash called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) MarkEmailVerified(ctx context.Context, userID string, when time.Time) error {
	if s.markEmailVerifiedFunc != nil {
		return s.markEmailVerifiedFunc(ctx, userID, when)
	}
	s.t.Fatalf("MarkEmailVerified called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	if s.getUserByExternalFunc != nil {
		return s.getUserByExternalFunc(ctx, provider, providerID)
	}
	s.t.Fatalf("GetUserByExternalAccount called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	if s.linkExternalAccountFunc != nil {
		return s.linkExternalAccountFunc(ctx, userID, provider, providerID, email)
	}
	s.t.Fatalf("LinkExternalAccount called unexpectedly")
	return domain.ExternalAccount{}, errors.New("unexpected call")
}

func (s *stubUsersStore) CreateUserWithExternalAccount(ctx context.Context, nu domain.NewUser, provider, providerID string) (domain.User, error) {
	if s.createUserWithExternalFunc != nil {
		return s.createUserWithExternalFunc(ctx, nu, provider, providerID)
	}
	s.t.Fatalf("CreateUserWithExternalAccount called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

type stubTokensStore struct {
	t *testing.T

	upsertFunc     func(context.Context, domain.OneTimeToken) (domain.OneTimeToken, error)
	getByHashFunc  func(context.Context, domain.TokenPurpose, string) (domain.OneTimeToken, error)
	deleteFunc     func(context.Context, string) error
	claimFunc      func(context.Context, string, func(context.Context) error) error
	deleteExpiredF func(context.Context, time.Time) (int64, error)
}

func (s *stubTokensStore) UpsertToken(ctx context.Context, tok domain.OneTimeToken) (domain.OneTimeToken, error) {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, tok)
	}
	s.t.Fatalf("UpsertToken called unexpectedly")
	return domain.OneTimeToken{}, errors.New("unexpected call")
}

func (s *stubTokensStore) GetTokenByHash(ctx context.Context, purpose domain.TokenPurpose, hash string) (domain.OneTimeToken, error) {
	if s.getByHashFunc != nil {
		return s.getByHashFunc(ctx, purpose, hash)
	}
	s.t.Fatalf("GetTokenByHash called unexpectedly")
	return domain.OneTimeToken{}, errors.New("unexpected call")
}

func (s *stubTokensStore) DeleteToken(ctx context.Context, id string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, id)
	}
	s.t.Fatalf("DeleteToken called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubTokensStore) ClaimToken(ctx context.Context, id string, use func(context.Context) error) error {
	if s.claimFunc != nil {
		return s.claimFunc(ctx, id, use)
	}
	s.t.Fatalf("ClaimToken called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubTokensStore) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	if s.deleteExpiredF != nil {
		return s.deleteExpiredF(ctx, now)
	}
	s.t.Fatalf("DeleteExpiredTokens called unexpectedly")
	return 0, errors.New("unexpected call")
}

func verifiedUser(t *testing.T, password string, twoFactor bool) domain.UserWithPassword {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now()
	return domain.UserWithPassword{
		User: domain.User{
			ID:                 "u1",
			Email:              "a@example.com",
			Role:               domain.RoleUser,
			EmailVerified:      &now,
			IsTwoFactorEnabled: twoFactor,
		},
		PasswordHash: hash,
	}
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getUserByEmailFunc: func(context.Context, string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{}, errors.New("connection refused")
		},
	}
	svc := &AuthService{Users: users}

	_, err := svc.Authenticate(context.Background(), "a@example.com", "pw", "")
	if !errors.Is(err, domain.ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}
}

func TestAuthenticate_LastLoginFailureDoesNotBlock(t *testing.T) {
	u := verifiedUser(t, "correct-horse", false)
	users := &stubUsersStore{
		t: t,
		getUserByEmailFunc: func(context.Context, string) (domain.UserWithPassword, error) {
			return u, nil
		},
		setLastLoginFunc: func(context.Context, string, time.Time) error {
			return errors.New("timeout")
		},
	}
	svc := &AuthService{Users: users}

	out, err := svc.Authenticate(context.Background(), "a@example.com", "correct-horse", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !out.Succeeded() || out.Identity.ID != "u1" {
		t.Fatalf("expected success for u1, got %+v", out)
	}
}

func TestAuthenticate_OAuthOnlyAccountRejectsPassword(t *testing.T) {
	u := verifiedUser(t, "x", false)
	u.PasswordHash = ""
	users := &stubUsersStore{
		t: t,
		getUserByEmailFunc: func(context.Context, string) (domain.UserWithPassword, error) {
			return u, nil
		},
	}
	svc := &AuthService{Users: users}

	out, err := svc.Authenticate(context.Background(), "a@example.com", "anything", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if out.Kind != domain.OutcomeInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %s", out.Kind)
	}
}

func TestAuthenticate_CodeForOtherEmailIsInvalid(t *testing.T) {
	u := verifiedUser(t, "correct-horse", true)
	users := &stubUsersStore{
		t: t,
		getUserByEmailFunc: func(context.Context, string) (domain.UserWithPassword, error) {
			return u, nil
		},
	}
	tokens := &stubTokensStore{
		t: t,
		getByHashFunc: func(_ context.Context, purpose domain.TokenPurpose, hash string) (domain.OneTimeToken, error) {
			if purpose != domain.TokenTwoFactor || hash != HashTokenValue("123456") {
				t.Fatalf("unexpected lookup %s %s", purpose, hash)
			}
			return domain.OneTimeToken{ID: "t1", Purpose: purpose, Email: "someone-else@example.com", ExpiresAt: time.Now().Add(time.Minute)}, nil
		},
	}
	svc := &AuthService{Users: users, Tokens: &TokenService{Store: tokens}}

	out, err := svc.Authenticate(context.Background(), "a@example.com", "", "123456")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if out.Kind != domain.OutcomeInvalidTwoFactorCode {
		t.Fatalf("expected invalid two factor code, got %s", out.Kind)
	}
}

func TestAuthenticate_RehashesBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := verifiedUser(t, "x", false)
	u.PasswordHash = string(legacy)

	var newHash string
	users := &stubUsersStore{
		t: t,
		getUserByEmailFunc: func(context.Context, string) (domain.UserWithPassword, error) {
			return u, nil
		},
		setPasswordHashFunc: func(_ context.Context, _ string, hash string, _ time.Time) error {
			newHash = hash
			return nil
		},
		setLastLoginFunc: func(context.Context, string, time.Time) error { return nil },
	}
	svc := &AuthService{Users: users}

	out, err := svc.Authenticate(context.Background(), "a@example.com", "correct-horse", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !out.Succeeded() {
		t.Fatalf("expected bcrypt password to verify, got %s", out.Kind)
	}
	if !strings.HasPrefix(newHash, "$argon2id$") {
		t.Fatalf("expected argon2id rehash, got %q", newHash)
	}
}

func TestCheckSession_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &AuthService{Now: func() time.Time { return now }}
	sess := domain.Session{ID: "s1", ExpiresAt: now}

	if err := svc.CheckSession(context.Background(), sess); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized at expiry instant, got %v", err)
	}
}
