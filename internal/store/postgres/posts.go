package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AuthPortalwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsStore struct {
	pool *pgxpool.Pool
}

func NewPostsStore(pool *pgxpool.Pool) *PostsStore {
	return &PostsStore{pool: pool}
}

const postColumns = `p.id, p.title, p.content, p.author_id, p.published, p.created_at, p.updated_at`

func scanPost(row scanner, extra ...any) (domain.Post, error) {
	var (
		p          domain.Post
		idUUID     pgtype.UUID
		authorUUID pgtype.UUID
	)
	dest := append([]any{&idUUID, &p.Title, &p.Content, &authorUUID, &p.Published, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Post{}, err
	}
	p.ID = uuidOrEmpty(idUUID)
	p.AuthorID = uuidOrEmpty(authorUUID)
	return p, nil
}

func scanPostWithAuthor(row scanner) (domain.PostWithAuthor, error) {
	var (
		name  pgtype.Text
		email string
	)
	p, err := scanPost(row, &name, &email)
	if err != nil {
		return domain.PostWithAuthor{}, err
	}
	return domain.PostWithAuthor{Post: p, AuthorName: textOrEmpty(name), AuthorEmail: email}, nil
}

func (s *PostsStore) CreatePost(ctx context.Context, in domain.Post) (domain.Post, error) {
	const q = `
		INSERT INTO posts AS p (id, title, content, author_id, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + postColumns

	id, ok := parseUUID(in.ID)
	if !ok {
		return domain.Post{}, fmt.Errorf("create post: invalid id %q", in.ID)
	}
	author, ok := parseUUID(in.AuthorID)
	if !ok {
		return domain.Post{}, domain.ErrUserNotFound
	}
	p, err := scanPost(s.pool.QueryRow(ctx, q, id, in.Title, in.Content, author, in.Published, in.CreatedAt, in.UpdatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Post{}, domain.ErrUserNotFound
		}
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *PostsStore) GetPost(ctx context.Context, id string) (domain.PostWithAuthor, error) {
	const q = `
		SELECT ` + postColumns + `, u.name, u.email
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1
	`
	uid, ok := parseUUID(id)
	if !ok {
		return domain.PostWithAuthor{}, domain.ErrNotFound
	}
	p, err := scanPostWithAuthor(s.pool.QueryRow(ctx, q, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PostWithAuthor{}, domain.ErrNotFound
		}
		return domain.PostWithAuthor{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostsStore) ListPublishedPosts(ctx context.Context, limit, offset int) ([]domain.PostWithAuthor, error) {
	const q = `
		SELECT ` + postColumns + `, u.name, u.email
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.published
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []domain.PostWithAuthor{}
	for rows.Next() {
		p, err := scanPostWithAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}

func (s *PostsStore) ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	const q = `
		SELECT ` + postColumns + `
		FROM posts p
		WHERE p.author_id = $1
		ORDER BY p.created_at DESC
	`
	uid, ok := parseUUID(authorID)
	if !ok {
		return []domain.Post{}, nil
	}
	rows, err := s.pool.Query(ctx, q, uid)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	defer rows.Close()

	out := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return out, nil
}

func (s *PostsStore) UpdatePost(ctx context.Context, id, title, content string, when time.Time) (domain.Post, error) {
	const q = `
		UPDATE posts AS p
		SET title = $2, content = $3, updated_at = $4
		WHERE p.id = $1
		RETURNING ` + postColumns
	return s.update(ctx, "update post", q, id, title, content, when)
}

func (s *PostsStore) SetPostPublished(ctx context.Context, id string, published bool, when time.Time) (domain.Post, error) {
	const q = `
		UPDATE posts AS p
		SET published = $2, updated_at = $3
		WHERE p.id = $1
		RETURNING ` + postColumns
	return s.update(ctx, "set post published", q, id, published, when)
}

func (s *PostsStore) update(ctx context.Context, op, q, id string, args ...any) (domain.Post, error) {
	uid, ok := parseUUID(id)
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	p, err := scanPost(s.pool.QueryRow(ctx, q, append([]any{uid}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *PostsStore) DeletePost(ctx context.Context, id string) error {
	uid, ok := parseUUID(id)
	if !ok {
		return domain.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
