package postgres

import (
	"context"
	"fmt"

	"AuthPortalwebserver/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminDirectory serves the read side of the admin screens.
type AdminDirectory struct {
	pool *pgxpool.Pool
}

func NewAdminDirectory(pool *pgxpool.Pool) *AdminDirectory {
	return &AdminDirectory{pool: pool}
}

func (s *AdminDirectory) ListUsersWithPostCounts(ctx context.Context, limit, offset int) ([]domain.AdminUser, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT u.id, u.email, u.name, u.password_hash, u.role, u.email_verified,
		       u.is_two_factor_enabled, u.created_at, u.updated_at, u.last_login_at,
		       (SELECT count(*) FROM posts p WHERE p.author_id = u.id) AS post_count
		FROM users u
		ORDER BY u.created_at DESC, u.id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []domain.AdminUser{}
	for rows.Next() {
		var postCount int64
		u, err := scanUser(extraScanner{row: rows, extra: []any{&postCount}})
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, domain.AdminUser{
			User:        u.User,
			PostCount:   int(postCount),
			HasPassword: u.HasPassword(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return out, nil
}

func (s *AdminDirectory) GetAdminStats(ctx context.Context) (domain.AdminStats, error) {
	const q = `
		SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM posts),
			(SELECT count(*) FROM users WHERE role = 'ADMIN')
	`

	var users, posts, admins int64
	if err := s.pool.QueryRow(ctx, q).Scan(&users, &posts, &admins); err != nil {
		return domain.AdminStats{}, fmt.Errorf("admin stats: %w", err)
	}
	return domain.AdminStats{TotalUsers: int(users), TotalPosts: int(posts), TotalAdmins: int(admins)}, nil
}

// extraScanner appends trailing columns to a scan meant for a narrower row.
type extraScanner struct {
	row   scanner
	extra []any
}

func (e extraScanner) Scan(dest ...any) error {
	return e.row.Scan(append(dest, e.extra...)...)
}
