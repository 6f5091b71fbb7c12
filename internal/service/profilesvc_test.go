package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/store/memory"
)

func TestProfile_UpdateName(t *testing.T) {
	st := memory.New()
	u, err := st.CreateUser(context.Background(), domain.NewUser{Email: "a@example.com", Name: "Old"})
	require.NoError(t, err)
	svc := &ProfileService{Store: st}

	assert.ErrorIs(t, svc.UpdateName(context.Background(), u.ID, " x "), domain.ErrValidation)
	require.NoError(t, svc.UpdateName(context.Background(), u.ID, "  New Name "))

	got, err := svc.GetProfile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)

	assert.ErrorIs(t, svc.UpdateName(context.Background(), "missing", "Valid"), domain.ErrUserNotFound)
}

func TestProfile_ChangePassword(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	hash, err := auth.HashPassword("old-password")
	require.NoError(t, err)
	withPw, err := st.CreateUser(ctx, domain.NewUser{Email: "a@example.com", PasswordHash: hash})
	require.NoError(t, err)
	oauthOnly, err := st.CreateUser(ctx, domain.NewUser{Email: "b@example.com"})
	require.NoError(t, err)
	svc := &ProfileService{Store: st}

	assert.ErrorIs(t, svc.ChangePassword(ctx, withPw.ID, "", "new-password"), domain.ErrValidation)
	assert.ErrorIs(t, svc.ChangePassword(ctx, withPw.ID, "wrong-password", "new-password"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, withPw.ID, "old-password", "short"), domain.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, withPw.ID, "old-password", "new-password"))

	got, err := st.GetUserByID(ctx, withPw.ID)
	require.NoError(t, err)
	ok, err := auth.VerifyPassword(got.PasswordHash, "new-password")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, svc.ChangePassword(ctx, oauthOnly.ID, "anything", "new-password"), domain.ErrPasswordNotSet)
	require.NoError(t, svc.ChangePassword(ctx, oauthOnly.ID, "", "first-password"))
}

func TestProfile_SetTwoFactorRequiresPassword(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	oauthOnly, err := st.CreateUser(ctx, domain.NewUser{Email: "b@example.com"})
	require.NoError(t, err)
	withPw, err := st.CreateUser(ctx, domain.NewUser{Email: "a@example.com", PasswordHash: "$argon2id$placeholder"})
	require.NoError(t, err)
	svc := &ProfileService{Store: st}

	assert.ErrorIs(t, svc.SetTwoFactor(ctx, oauthOnly.ID, true), domain.ErrPasswordNotSet)
	require.NoError(t, svc.SetTwoFactor(ctx, oauthOnly.ID, false))

	require.NoError(t, svc.SetTwoFactor(ctx, withPw.ID, true))
	got, err := st.GetUserByID(ctx, withPw.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTwoFactorEnabled)
}
