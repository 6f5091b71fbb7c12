package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"AuthPortalwebserver/internal/domain"
)

// UpsertToken replaces the live token for (purpose, email). A hash already
// held by another email's token is a collision.
func (s *Store) UpsertToken(ctx context.Context, tok domain.OneTimeToken) (domain.OneTimeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := tokenKey{tok.Purpose, tok.Email}
	hashKey := tokenKey{tok.Purpose, tok.TokenHash}

	prevID, hasPrev := s.tokenEmail[emailKey]
	if id, ok := s.tokenHash[hashKey]; ok && (!hasPrev || id != prevID) {
		return domain.OneTimeToken{}, domain.ErrTokenCollision
	}
	if hasPrev {
		s.deleteTokenLocked(prevID)
	}

	tok.ID = uuid.NewString()
	tok.Token = ""
	s.tokens[tok.ID] = tok
	s.tokenEmail[emailKey] = tok.ID
	s.tokenHash[hashKey] = tok.ID
	return tok, nil
}

func (s *Store) GetTokenByHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (domain.OneTimeToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokenHash[tokenKey{purpose, tokenHash}]
	if !ok {
		return domain.OneTimeToken{}, domain.ErrNotFound
	}
	return s.tokens[id], nil
}

func (s *Store) DeleteToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[id]; !ok {
		return domain.ErrNotFound
	}
	s.deleteTokenLocked(id)
	return nil
}

// ClaimToken removes the token under the store lock, so exactly one caller
// wins it, then runs use. A failed use puts the token back unless a newer
// token for the same purpose and email was issued in the meantime.
func (s *Store) ClaimToken(ctx context.Context, id string, use func(ctx context.Context) error) error {
	s.mu.Lock()
	tok, ok := s.tokens[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	s.deleteTokenLocked(id)
	s.mu.Unlock()

	if use == nil {
		return nil
	}
	if err := use(ctx); err != nil {
		s.restoreToken(tok)
		return err
	}
	return nil
}

func (s *Store) restoreToken(tok domain.OneTimeToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emailKey := tokenKey{tok.Purpose, tok.Email}
	hashKey := tokenKey{tok.Purpose, tok.TokenHash}
	if _, taken := s.tokenEmail[emailKey]; taken {
		return
	}
	if _, taken := s.tokenHash[hashKey]; taken {
		return
	}
	s.tokens[tok.ID] = tok
	s.tokenEmail[emailKey] = tok.ID
	s.tokenHash[hashKey] = tok.ID
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, tok := range s.tokens {
		if tok.Expired(now) {
			s.deleteTokenLocked(id)
			n++
		}
	}
	return n, nil
}

// CountTokens reports live tokens for (purpose, email); 0 or 1.
func (s *Store) CountTokens(purpose domain.TokenPurpose, email string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tok := range s.tokens {
		if tok.Purpose == purpose && tok.Email == email {
			n++
		}
	}
	return n
}

func (s *Store) deleteTokenLocked(id string) {
	tok, ok := s.tokens[id]
	if !ok {
		return
	}
	delete(s.tokens, id)
	delete(s.tokenEmail, tokenKey{tok.Purpose, tok.Email})
	delete(s.tokenHash, tokenKey{tok.Purpose, tok.TokenHash})
}
