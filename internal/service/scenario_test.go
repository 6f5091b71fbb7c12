package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/store/memory"
)

type sentMail struct {
	kind  string
	to    string
	value string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) record(kind, to, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, value: value})
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, token string) error {
	return m.record("password_reset", to, token)
}

func (m *recordingMailer) SendVerification(_ context.Context, to, token string) error {
	return m.record("verification", to, token)
}

func (m *recordingMailer) SendTwoFactorCode(_ context.Context, to, code string) error {
	return m.record("two_factor", to, code)
}

func (m *recordingMailer) last(t *testing.T, kind string) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i]
		}
	}
	t.Fatalf("no %s email sent", kind)
	return sentMail{}
}

func (m *recordingMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store  *memory.Store
	mail   *recordingMailer
	clock  *clock
	tokens *TokenService
	auth   *AuthService
	reset  *PasswordResetService
	verify *VerificationService
	admin  *AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := memory.New()
	mail := &recordingMailer{}
	clk := &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := &TokenService{Store: st, Users: st, Now: clk.Now}
	return &harness{
		store:  st,
		mail:   mail,
		clock:  clk,
		tokens: tokens,
		auth: &AuthService{
			Users:       st,
			Tokens:      tokens,
			Mail:        mail,
			Revocations: st,
			SessionTTL:  30 * time.Minute,
			Now:         clk.Now,
		},
		reset:  &PasswordResetService{Tokens: tokens, Users: st, Mail: mail, Now: clk.Now},
		verify: &VerificationService{Tokens: tokens, Users: st, Mail: mail, Now: clk.Now},
		admin:  &AdminService{Directory: st, Users: st, Now: clk.Now},
	}
}

// seedUser creates a user with a password; verified and twoFactor control
// the account flags.
func (h *harness) seedUser(t *testing.T, email, password string, verified, twoFactor bool) domain.User {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	nu := domain.NewUser{Email: email, Name: "Test User", PasswordHash: hash, Role: domain.RoleUser}
	if verified {
		now := h.clock.Now()
		nu.EmailVerified = &now
	}
	u, err := h.store.CreateUser(ctx, nu)
	require.NoError(t, err)
	if twoFactor {
		require.NoError(t, h.store.SetTwoFactorEnabled(ctx, u.ID, true, h.clock.Now()))
		u.IsTwoFactorEnabled = true
	}
	return u
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	h := newHarness(t)

	out, err := h.auth.Authenticate(context.Background(), "nobody@example.com", "whatever1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalidCredentials, out.Kind)
	assert.Nil(t, out.Identity)
}

func TestAuthenticate_WrongPasswordAndMissingPassword(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)

	out, err := h.auth.Authenticate(context.Background(), "a@example.com", "wrong-horse", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalidCredentials, out.Kind)

	out, err = h.auth.Authenticate(context.Background(), "a@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalidCredentials, out.Kind)
}

func TestAuthenticate_UnverifiedRegardlessOfTwoFactor(t *testing.T) {
	for _, twoFactor := range []bool{false, true} {
		h := newHarness(t)
		h.seedUser(t, "a@example.com", "correct-horse", false, twoFactor)

		out, err := h.auth.Authenticate(context.Background(), "a@example.com", "correct-horse", "")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeEmailNotVerified, out.Kind, "twoFactor=%v", twoFactor)
		assert.Equal(t, 0, h.mail.count("two_factor"))
	}
}

func TestAuthenticate_Success(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "a@example.com", "correct-horse", true, false)

	out, err := h.auth.Authenticate(context.Background(), "a@example.com", "correct-horse", "")
	require.NoError(t, err)
	require.True(t, out.Succeeded())
	assert.Equal(t, u.ID, out.Identity.ID)
	assert.Equal(t, domain.RoleUser, out.Identity.Role)
	assert.False(t, out.Identity.IsTwoFactorEnabled)

	sess := h.auth.NewSession(*out.Identity)
	assert.Equal(t, 30*time.Minute, sess.ExpiresAt.Sub(sess.IssuedAt))

	stored, err := h.store.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestAuthenticate_TwoFactorChallengeIssuesOneToken(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, true)
	ctx := context.Background()

	out, err := h.auth.Authenticate(ctx, "a@example.com", "correct-horse", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTwoFactorRequired, out.Kind)
	assert.Equal(t, "a@example.com", out.Email)
	assert.Equal(t, 1, h.store.CountTokens(domain.TokenTwoFactor, "a@example.com"))

	code := h.mail.last(t, "two_factor").value
	tok, err := h.store.GetTokenByHash(ctx, domain.TokenTwoFactor, HashTokenValue(code))
	require.NoError(t, err)
	assert.Equal(t, h.clock.Now().Add(5*time.Minute), tok.ExpiresAt)

	out, err = h.auth.Authenticate(ctx, "a@example.com", "", code)
	require.NoError(t, err)
	require.True(t, out.Succeeded())
	assert.True(t, out.Identity.IsTwoFactorEnabled)
	assert.Equal(t, 0, h.store.CountTokens(domain.TokenTwoFactor, "a@example.com"))

	out, err = h.auth.Authenticate(ctx, "a@example.com", "", code)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalidTwoFactorCode, out.Kind)
}

func TestAuthenticate_TwoFactorRegenerationInvalidatesPrevious(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, true)
	ctx := context.Background()

	_, err := h.auth.Authenticate(ctx, "a@example.com", "correct-horse", "")
	require.NoError(t, err)
	first := h.mail.last(t, "two_factor").value

	_, err = h.auth.Authenticate(ctx, "a@example.com", "correct-horse", "")
	require.NoError(t, err)
	second := h.mail.last(t, "two_factor").value
	assert.Equal(t, 1, h.store.CountTokens(domain.TokenTwoFactor, "a@example.com"))

	if first != second {
		out, err := h.auth.Authenticate(ctx, "a@example.com", "", first)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeInvalidTwoFactorCode, out.Kind)
	}

	out, err := h.auth.Authenticate(ctx, "a@example.com", "", second)
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
}

func TestAuthenticate_TwoFactorCodeExpired(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, true)
	ctx := context.Background()

	_, err := h.auth.Authenticate(ctx, "a@example.com", "correct-horse", "")
	require.NoError(t, err)
	code := h.mail.last(t, "two_factor").value

	h.clock.Advance(5 * time.Minute)
	out, err := h.auth.Authenticate(ctx, "a@example.com", "", code)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTwoFactorCodeExpired, out.Kind)
	assert.Equal(t, 0, h.store.CountTokens(domain.TokenTwoFactor, "a@example.com"))
}

func TestAuthenticate_TwoFactorDispatchFailureIsAnError(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, true)
	h.mail.err = domain.ErrDeliveryFailed

	_, err := h.auth.Authenticate(context.Background(), "a@example.com", "correct-horse", "")
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
}

func TestTokens_ExpiredConsumeDeletes(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)
	ctx := context.Background()

	tok, err := h.tokens.Issue(ctx, domain.TokenPasswordReset, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, h.clock.Now().Add(time.Hour), tok.ExpiresAt)

	h.clock.Advance(time.Hour)
	_, err = h.tokens.Consume(ctx, domain.TokenPasswordReset, tok.Token, nil)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	_, err = h.tokens.Consume(ctx, domain.TokenPasswordReset, tok.Token, nil)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestTokens_IssueThenConsume(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "a@example.com", "correct-horse", true, false)
	ctx := context.Background()

	tok, err := h.tokens.Issue(ctx, domain.TokenPasswordReset, "a@example.com")
	require.NoError(t, err)

	got, err := h.tokens.Consume(ctx, domain.TokenPasswordReset, tok.Token, nil)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, u.ID, got.UserID)

	_, err = h.tokens.Consume(ctx, domain.TokenPasswordReset, tok.Token, nil)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestTokens_PurposesAreSeparate(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)
	ctx := context.Background()

	tok, err := h.tokens.Issue(ctx, domain.TokenVerification, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, h.clock.Now().Add(24*time.Hour), tok.ExpiresAt)

	_, err = h.tokens.Consume(ctx, domain.TokenPasswordReset, tok.Token, nil)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestTokens_IssueForUnknownUser(t *testing.T) {
	h := newHarness(t)
	for _, p := range []domain.TokenPurpose{domain.TokenPasswordReset, domain.TokenVerification, domain.TokenTwoFactor} {
		_, err := h.tokens.Issue(context.Background(), p, "ghost@example.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound, "purpose %s", p)
	}
}

func TestTokens_FailedUseKeepsToken(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)
	ctx := context.Background()

	tok, err := h.tokens.Issue(ctx, domain.TokenVerification, "a@example.com")
	require.NoError(t, err)

	_, err = h.tokens.Consume(ctx, domain.TokenVerification, tok.Token, func(context.Context, domain.OneTimeToken) error {
		return domain.ErrStoreFailure
	})
	assert.ErrorIs(t, err, domain.ErrStoreFailure)

	_, err = h.tokens.Consume(ctx, domain.TokenVerification, tok.Token, nil)
	assert.NoError(t, err)
}

func TestTokens_CollisionRetries(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)
	h.seedUser(t, "b@example.com", "correct-horse", true, false)
	ctx := context.Background()

	values := []string{"111111", "111111", "222222"}
	h.tokens.NewValue = func(domain.TokenPurpose) (string, error) {
		v := values[0]
		values = values[1:]
		return v, nil
	}

	_, err := h.tokens.Issue(ctx, domain.TokenTwoFactor, "a@example.com")
	require.NoError(t, err)
	tok, err := h.tokens.Issue(ctx, domain.TokenTwoFactor, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", tok.Token)
}

func TestTokens_ConcurrentIssueLeavesOneLiveToken(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.tokens.Issue(ctx, domain.TokenPasswordReset, "a@example.com")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, h.store.CountTokens(domain.TokenPasswordReset, "a@example.com"))
}

func TestTokens_ConcurrentConsumeAppliesOnce(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)
	ctx := context.Background()

	tok, err := h.tokens.Issue(ctx, domain.TokenPasswordReset, "a@example.com")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		uses  int
		errs  []error
		start = make(chan struct{})
		wg    sync.WaitGroup
	)
	use := func(context.Context, domain.OneTimeToken) error {
		mu.Lock()
		uses++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return nil
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.tokens.Consume(ctx, domain.TokenPasswordReset, tok.Token, use)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, uses)
	require.Len(t, errs, 2)
	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrTokenNotFound):
			notFound++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)
}

func TestScenario_RegisterVerifyLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.auth.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Nil(t, u.EmailVerified)
	assert.Equal(t, domain.RoleUser, u.Role)

	out, err := h.auth.Authenticate(ctx, "alice@example.com", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeEmailNotVerified, out.Kind)

	token := h.mail.last(t, "verification").value
	email, err := h.verify.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	out, err = h.auth.Authenticate(ctx, "alice@example.com", "password123", "")
	require.NoError(t, err)
	require.True(t, out.Succeeded())
	assert.NotNil(t, out.Identity.EmailVerified)

	_, err = h.verify.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "correct-horse", true, false)

	_, err := h.auth.Register(context.Background(), RegisterInput{Name: "Again", Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyInUse)
}

func TestRegister_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.auth.Register(context.Background(), RegisterInput{Name: "Alice", Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResendVerification_ReplacesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	first := h.mail.last(t, "verification").value

	require.NoError(t, h.verify.ResendVerification(ctx, "alice@example.com"))
	second := h.mail.last(t, "verification").value
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, h.store.CountTokens(domain.TokenVerification, "alice@example.com"))

	_, err = h.verify.VerifyEmail(ctx, first)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	assert.ErrorIs(t, h.verify.ResendVerification(ctx, "ghost@example.com"), domain.ErrUserNotFound)
}

func TestPasswordReset_Flow(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "old-password", true, false)
	ctx := context.Background()

	require.NoError(t, h.reset.RequestPasswordReset(ctx, "a@example.com"))
	token := h.mail.last(t, "password_reset").value

	require.NoError(t, h.reset.CompletePasswordReset(ctx, token, "new-password"))

	out, err := h.auth.Authenticate(ctx, "a@example.com", "old-password", "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalidCredentials, out.Kind)

	out, err = h.auth.Authenticate(ctx, "a@example.com", "new-password", "")
	require.NoError(t, err)
	assert.True(t, out.Succeeded())

	assert.ErrorIs(t, h.reset.CompletePasswordReset(ctx, token, "another-password"), domain.ErrTokenNotFound)
	assert.ErrorIs(t, h.reset.RequestPasswordReset(ctx, "ghost@example.com"), domain.ErrUserNotFound)
}

type vanishedUsers struct{}

func (vanishedUsers) SetPasswordHash(context.Context, string, string, time.Time) error {
	return domain.ErrNotFound
}

func TestPasswordReset_UserGoneBeforeCompletion(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "old-password", true, false)
	ctx := context.Background()

	require.NoError(t, h.reset.RequestPasswordReset(ctx, "a@example.com"))
	token := h.mail.last(t, "password_reset").value

	svc := &PasswordResetService{Tokens: h.tokens, Users: vanishedUsers{}, Mail: h.mail, Now: h.clock.Now}
	err := svc.CompletePasswordReset(ctx, token, "new-password")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NotErrorIs(t, err, domain.ErrStoreFailure)
}

func TestPasswordReset_Expired(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "a@example.com", "old-password", true, false)
	ctx := context.Background()

	require.NoError(t, h.reset.RequestPasswordReset(ctx, "a@example.com"))
	token := h.mail.last(t, "password_reset").value

	h.clock.Advance(61 * time.Minute)
	assert.ErrorIs(t, h.reset.CompletePasswordReset(ctx, token, "new-password"), domain.ErrTokenExpired)
}

func TestAdmin_SelfModificationForbidden(t *testing.T) {
	h := newHarness(t)
	admin := h.seedUser(t, "admin@example.com", "correct-horse", true, false)
	ctx := context.Background()

	_, err := h.admin.UpdateUserRole(ctx, admin.ID, admin.ID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrSelfModificationForbidden)
	assert.ErrorIs(t, h.admin.DeleteUser(ctx, admin.ID, admin.ID), domain.ErrSelfModificationForbidden)
}

func TestAdmin_RoleChangeAndDelete(t *testing.T) {
	h := newHarness(t)
	admin := h.seedUser(t, "admin@example.com", "correct-horse", true, false)
	other := h.seedUser(t, "user@example.com", "correct-horse", true, false)
	ctx := context.Background()

	u, err := h.admin.UpdateUserRole(ctx, admin.ID, other.ID, domain.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, u.Role)

	_, err = h.admin.UpdateUserRole(ctx, admin.ID, other.ID, domain.Role("ROOT"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.admin.UpdateUserRole(ctx, admin.ID, "missing", domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, h.admin.DeleteUser(ctx, admin.ID, other.ID))
	assert.ErrorIs(t, h.admin.DeleteUser(ctx, admin.ID, other.ID), domain.ErrUserNotFound)

	stats, err := h.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUsers)
}

func TestLogout_RevokesSession(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "a@example.com", "correct-horse", true, false)
	ctx := context.Background()

	sess := h.auth.NewSession(domain.IdentityFromUser(u))
	require.NoError(t, h.auth.CheckSession(ctx, sess))
	require.NoError(t, h.auth.Logout(ctx, sess))
	assert.ErrorIs(t, h.auth.CheckSession(ctx, sess), domain.ErrUnauthorized)

	h.clock.Advance(31 * time.Minute)
	require.NoError(t, h.auth.PurgeExpired(ctx))
	revoked, err := h.store.IsSessionRevoked(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestLoginWithExternal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.auth.LoginWithExternal(ctx, auth.ExternalIdentity{Provider: "github", Subject: "42", Email: "octo@example.com", Name: "Octo", EmailVerified: true})
	require.NoError(t, err)
	assert.NotNil(t, id.EmailVerified)
	assert.Equal(t, domain.RoleUser, id.Role)

	again, err := h.auth.LoginWithExternal(ctx, auth.ExternalIdentity{Provider: "github", Subject: "42"})
	require.NoError(t, err)
	assert.Equal(t, id.ID, again.ID)

	existing := h.seedUser(t, "a@example.com", "correct-horse", false, false)
	_, err = h.auth.LoginWithExternal(ctx, auth.ExternalIdentity{Provider: "google", Subject: "g", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrExternalAccountExists)

	linked, err := h.auth.LoginWithExternal(ctx, auth.ExternalIdentity{Provider: "google", Subject: "g", Email: "a@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.NotNil(t, linked.EmailVerified)

	out, err := h.auth.Authenticate(ctx, "a@example.com", "correct-horse", "")
	require.NoError(t, err)
	assert.True(t, out.Succeeded(), "linking marks the email verified")
}
