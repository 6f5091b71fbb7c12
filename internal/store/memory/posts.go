package memory

import (
	"context"
	"sort"
	"time"

	"AuthPortalwebserver/internal/domain"
)

func (s *Store) CreatePost(ctx context.Context, p domain.Post) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.AuthorID]; !ok {
		return domain.Post{}, domain.ErrUserNotFound
	}
	s.posts[p.ID] = p
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (domain.PostWithAuthor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.PostWithAuthor{}, domain.ErrNotFound
	}
	return s.withAuthorLocked(p), nil
}

func (s *Store) ListPublishedPosts(ctx context.Context, limit, offset int) ([]domain.PostWithAuthor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PostWithAuthor, 0)
	for _, p := range s.posts {
		if p.Published {
			out = append(out, s.withAuthorLocked(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Post, 0)
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdatePost(ctx context.Context, id, title, content string, when time.Time) (domain.Post, error) {
	return s.updatePost(id, func(p *domain.Post) {
		p.Title = title
		p.Content = content
		p.UpdatedAt = when
	})
}

func (s *Store) SetPostPublished(ctx context.Context, id string, published bool, when time.Time) (domain.Post, error) {
	return s.updatePost(id, func(p *domain.Post) {
		p.Published = published
		p.UpdatedAt = when
	})
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) updatePost(id string, fn func(*domain.Post)) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	fn(&p)
	s.posts[id] = p
	return p, nil
}

func (s *Store) withAuthorLocked(p domain.Post) domain.PostWithAuthor {
	out := domain.PostWithAuthor{Post: p}
	if rec, ok := s.users[p.AuthorID]; ok {
		out.AuthorName = rec.user.Name
		out.AuthorEmail = rec.user.Email
	}
	return out
}
