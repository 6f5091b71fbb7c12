package service

import (
	"context"
	"errors"
	"time"

	"AuthPortalwebserver/internal/domain"
)

type AdminService struct {
	Directory AdminDirectory
	Users     AdminUsersStore
	Now       func() time.Time
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]domain.AdminUser, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.Directory.ListUsersWithPostCounts(ctx, limit, offset)
	if err != nil {
		return nil, storeFailure("list users", err)
	}
	return users, nil
}

func (s *AdminService) Stats(ctx context.Context) (domain.AdminStats, error) {
	st, err := s.Directory.GetAdminStats(ctx)
	if err != nil {
		return domain.AdminStats{}, storeFailure("admin stats", err)
	}
	return st, nil
}

// UpdateUserRole changes another user's role. Admins cannot change their
// own role.
func (s *AdminService) UpdateUserRole(ctx context.Context, actorID, userID string, role domain.Role) (domain.User, error) {
	if actorID == userID {
		return domain.User{}, domain.ErrSelfModificationForbidden
	}
	if !role.Valid() {
		return domain.User{}, domain.NewValidationError(map[string]string{"role": "must be USER, MODERATOR or ADMIN"})
	}

	u, err := s.getUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Role == role {
		return u, nil
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if err := s.Users.SetRole(ctx, userID, role, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, storeFailure("update role", err)
	}
	u.Role = role
	u.UpdatedAt = now
	return u, nil
}

// DeleteUser removes another user together with everything they own.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return domain.ErrSelfModificationForbidden
	}
	if err := s.Users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return storeFailure("delete user", err)
	}
	return nil
}

func (s *AdminService) getUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, storeFailure("get user", err)
	}
	return u.User, nil
}
