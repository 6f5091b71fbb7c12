package memory

import (
	"context"
	"time"

	"AuthPortalwebserver/internal/domain"
)

func (s *Store) RevokeSession(ctx context.Context, sess domain.Session, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revocations[sess.ID] = revocation{userID: sess.UserID, expiresAt: sess.ExpiresAt}
	return nil
}

func (s *Store) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revocations[sessionID]
	return ok, nil
}

func (s *Store) DeleteExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.revocations {
		if !now.Before(r.expiresAt) {
			delete(s.revocations, id)
			n++
		}
	}
	return n, nil
}
