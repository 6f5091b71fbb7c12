package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
)

type ProfileService struct {
	Store ProfileStore
	Now   func() time.Time
}

func (s *ProfileService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (domain.UserWithPassword, error) {
	u, err := s.Store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UserWithPassword{}, domain.ErrUserNotFound
		}
		return domain.UserWithPassword{}, storeFailure("get profile", err)
	}
	return u, nil
}

func (s *ProfileService) UpdateName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return domain.NewValidationError(map[string]string{"name": "must be at least 2 characters"})
	}
	for _, r := range name {
		if r < 32 {
			return domain.NewValidationError(map[string]string{"name": "contains invalid characters"})
		}
	}
	if err := s.Store.SetName(ctx, userID, name, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return storeFailure("update name", err)
	}
	return nil
}

// ChangePassword replaces the password. Accounts that have one must prove
// it; accounts created through a provider set their first password without
// a current one.
func (s *ProfileService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.NewValidationError(map[string]string{"new_password": "must be at least 8 characters"})
	}

	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if u.HasPassword() {
		if currentPassword == "" {
			return domain.NewValidationError(map[string]string{"current_password": "is required"})
		}
		ok, err := auth.VerifyPassword(u.PasswordHash, currentPassword)
		if err != nil || !ok {
			return domain.ErrInvalidCredentials
		}
	} else if currentPassword != "" {
		return domain.ErrPasswordNotSet
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.SetPasswordHash(ctx, userID, hash, s.now()); err != nil {
		return storeFailure("change password", err)
	}
	return nil
}

// SetTwoFactor toggles email codes at sign-in. Only accounts with a password
// can enable it since provider sign-ins never ask for a code.
func (s *ProfileService) SetTwoFactor(ctx context.Context, userID string, enabled bool) error {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if enabled && !u.HasPassword() {
		return domain.ErrPasswordNotSet
	}
	if u.IsTwoFactorEnabled == enabled {
		return nil
	}
	if err := s.Store.SetTwoFactorEnabled(ctx, userID, enabled, s.now()); err != nil {
		return storeFailure("set two factor", err)
	}
	return nil
}
