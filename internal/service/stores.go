package service

import (
	"context"
	"errors"
	"time"

	"AuthPortalwebserver/internal/domain"
)

// Store implementations return domain.ErrNotFound for missing rows and
// domain.ErrEmailAlreadyInUse, domain.ErrExternalAccountExists or
// domain.ErrTokenCollision for the matching unique violations.

type UsersStore interface {
	CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.UserWithPassword, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
	SetPasswordHash(ctx context.Context, userID, passwordHash string, when time.Time) error
	MarkEmailVerified(ctx context.Context, userID string, when time.Time) error
	GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error)
	LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error)
	CreateUserWithExternalAccount(ctx context.Context, nu domain.NewUser, provider, providerID string) (domain.User, error)
}

type TokenUsersStore interface {
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
}

type TokensStore interface {
	// UpsertToken replaces any token with the same purpose and email.
	UpsertToken(ctx context.Context, tok domain.OneTimeToken) (domain.OneTimeToken, error)
	GetTokenByHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (domain.OneTimeToken, error)
	DeleteToken(ctx context.Context, id string) error
	// ClaimToken deletes the token and runs use as one unit of work: if use
	// fails the token is left in place. A token someone else already claimed
	// reports ErrNotFound and use does not run. Stores that support
	// transactions pass use a ctx bound to the claiming transaction.
	ClaimToken(ctx context.Context, id string, use func(ctx context.Context) error) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type SessionRevocationStore interface {
	RevokeSession(ctx context.Context, sess domain.Session, when time.Time) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
	DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}

type ProfileStore interface {
	GetUserByID(ctx context.Context, id string) (domain.UserWithPassword, error)
	SetName(ctx context.Context, userID, name string, when time.Time) error
	SetPasswordHash(ctx context.Context, userID, passwordHash string, when time.Time) error
	SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool, when time.Time) error
}

type AdminDirectory interface {
	ListUsersWithPostCounts(ctx context.Context, limit, offset int) ([]domain.AdminUser, error)
	GetAdminStats(ctx context.Context) (domain.AdminStats, error)
}

type AdminUsersStore interface {
	GetUserByID(ctx context.Context, id string) (domain.UserWithPassword, error)
	SetRole(ctx context.Context, userID string, role domain.Role, when time.Time) error
	DeleteUser(ctx context.Context, userID string) error
}

type PostsStore interface {
	CreatePost(ctx context.Context, p domain.Post) (domain.Post, error)
	GetPost(ctx context.Context, id string) (domain.PostWithAuthor, error)
	ListPublishedPosts(ctx context.Context, limit, offset int) ([]domain.PostWithAuthor, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error)
	UpdatePost(ctx context.Context, id, title, content string, when time.Time) (domain.Post, error)
	SetPostPublished(ctx context.Context, id string, published bool, when time.Time) (domain.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// storeFailure marks an unexpected store error as ErrStoreFailure, keeping the
// cause for logs.
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStoreFailure) {
		return err
	}
	return domain.NewStoreError(op, err)
}
