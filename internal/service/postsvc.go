package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/gate"
)

type ModerationAction string

const (
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
)

// Posts are plain text; all markup is stripped.
var postPolicy = bluemonday.StrictPolicy()

type PostService struct {
	Store PostsStore
	Now   func() time.Time
}

func (s *PostService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *PostService) sanitize(in string) string {
	return strings.TrimSpace(html.UnescapeString(postPolicy.Sanitize(in)))
}

func (s *PostService) validate(title, content string) (string, string, error) {
	title = s.sanitize(title)
	content = s.sanitize(content)

	fields := map[string]string{}
	if n := len([]rune(title)); n < 3 || n > 100 {
		fields["title"] = "must be between 3 and 100 characters"
	}
	if n := len([]rune(content)); n < 10 || n > 1000 {
		fields["content"] = "must be between 10 and 1000 characters"
	}
	if len(fields) > 0 {
		return "", "", domain.NewValidationError(fields)
	}
	return title, content, nil
}

func (s *PostService) Create(ctx context.Context, sess *domain.Session, title, content string) (domain.Post, error) {
	if _, err := gate.RequireSession(sess); err != nil {
		return domain.Post{}, err
	}
	title, content, err := s.validate(title, content)
	if err != nil {
		return domain.Post{}, err
	}

	now := s.now()
	p, err := s.Store.CreatePost(ctx, domain.Post{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		AuthorID:  sess.UserID,
		Published: true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Post{}, storeFailure("create post", err)
	}
	return p, nil
}

// Get returns a post. Unpublished posts are visible only to their author
// and to moderators.
func (s *PostService) Get(ctx context.Context, sess *domain.Session, id string) (domain.PostWithAuthor, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return domain.PostWithAuthor{}, err
	}
	if !p.Published && !s.isAuthor(sess, p.Post) && !gate.IsModerator(sess) {
		return domain.PostWithAuthor{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *PostService) ListPublished(ctx context.Context, limit, offset int) ([]domain.PostWithAuthor, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	posts, err := s.Store.ListPublishedPosts(ctx, limit, offset)
	if err != nil {
		return nil, storeFailure("list posts", err)
	}
	return posts, nil
}

func (s *PostService) ListMine(ctx context.Context, sess *domain.Session) ([]domain.Post, error) {
	if _, err := gate.RequireSession(sess); err != nil {
		return nil, err
	}
	posts, err := s.Store.ListPostsByAuthor(ctx, sess.UserID)
	if err != nil {
		return nil, storeFailure("list own posts", err)
	}
	return posts, nil
}

func (s *PostService) Update(ctx context.Context, sess *domain.Session, id, title, content string) (domain.Post, error) {
	if _, err := gate.RequireSession(sess); err != nil {
		return domain.Post{}, err
	}
	p, err := s.get(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	if !s.isAuthor(sess, p.Post) {
		return domain.Post{}, domain.ErrForbidden
	}
	title, content, err = s.validate(title, content)
	if err != nil {
		return domain.Post{}, err
	}

	updated, err := s.Store.UpdatePost(ctx, id, title, content, s.now())
	if err != nil {
		return domain.Post{}, s.mapErr("update post", err)
	}
	return updated, nil
}

// Delete removes a post. Authors may delete their own; admins any.
func (s *PostService) Delete(ctx context.Context, sess *domain.Session, id string) error {
	if _, err := gate.RequireSession(sess); err != nil {
		return err
	}
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !s.isAuthor(sess, p.Post) && !gate.IsAdmin(sess) {
		return domain.ErrForbidden
	}
	if err := s.Store.DeletePost(ctx, id); err != nil {
		return s.mapErr("delete post", err)
	}
	return nil
}

// Moderate publishes (approve) or hides (reject) a post.
func (s *PostService) Moderate(ctx context.Context, sess *domain.Session, id string, action ModerationAction) (domain.Post, error) {
	if _, err := gate.RequireModerator(sess); err != nil {
		return domain.Post{}, err
	}

	var published bool
	switch action {
	case ModerationApprove:
		published = true
	case ModerationReject:
		published = false
	default:
		return domain.Post{}, domain.NewValidationError(map[string]string{"action": "must be approve or reject"})
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Post{}, domain.ErrNotFound
	}

	p, err := s.Store.SetPostPublished(ctx, id, published, s.now())
	if err != nil {
		return domain.Post{}, s.mapErr("moderate post", err)
	}
	return p, nil
}

func (s *PostService) get(ctx context.Context, id string) (domain.PostWithAuthor, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.PostWithAuthor{}, domain.ErrNotFound
	}
	p, err := s.Store.GetPost(ctx, id)
	if err != nil {
		return domain.PostWithAuthor{}, s.mapErr("get post", err)
	}
	return p, nil
}

func (s *PostService) isAuthor(sess *domain.Session, p domain.Post) bool {
	return sess != nil && sess.UserID == p.AuthorID
}

func (s *PostService) mapErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return storeFailure(op, err)
}
