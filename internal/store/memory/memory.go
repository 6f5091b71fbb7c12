package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"AuthPortalwebserver/internal/domain"
)

type userRecord struct {
	user         domain.User
	passwordHash string
}

type externalKey struct {
	provider   string
	providerID string
}

type tokenKey struct {
	purpose domain.TokenPurpose
	value   string
}

type revocation struct {
	userID    string
	expiresAt time.Time
}

// Store keeps everything in process memory. It implements the same store
// contracts as the postgres package and is used when no database is
// configured.
type Store struct {
	mu sync.RWMutex

	users       map[string]*userRecord
	byEmail     map[string]string
	external    map[externalKey]domain.ExternalAccount
	tokens      map[string]domain.OneTimeToken
	tokenEmail  map[tokenKey]string
	tokenHash   map[tokenKey]string
	revocations map[string]revocation
	posts       map[string]domain.Post
}

func New() *Store {
	return &Store{
		users:       make(map[string]*userRecord),
		byEmail:     make(map[string]string),
		external:    make(map[externalKey]domain.ExternalAccount),
		tokens:      make(map[string]domain.OneTimeToken),
		tokenEmail:  make(map[tokenKey]string),
		tokenHash:   make(map[tokenKey]string),
		revocations: make(map[string]revocation),
		posts:       make(map[string]domain.Post),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(nu)
}

func (s *Store) createUserLocked(nu domain.NewUser) (domain.User, error) {
	if _, ok := s.byEmail[nu.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyInUse
	}
	role := nu.Role
	if role == "" {
		role = domain.RoleUser
	}
	now := time.Now().UTC()
	u := domain.User{
		ID:            uuid.NewString(),
		Email:         nu.Email,
		Name:          nu.Name,
		Role:          role,
		EmailVerified: copyTime(nu.EmailVerified),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.users[u.ID] = &userRecord{user: u, passwordHash: nu.PasswordHash}
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.UserWithPassword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return rec.snapshot(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return s.users[id].snapshot(), nil
}

func (s *Store) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	return s.updateUser(userID, func(r *userRecord) {
		t := when.UTC()
		r.user.LastLoginAt = &t
	})
}

func (s *Store) SetPasswordHash(ctx context.Context, userID, passwordHash string, when time.Time) error {
	return s.updateUser(userID, func(r *userRecord) {
		r.passwordHash = passwordHash
		r.user.UpdatedAt = when.UTC()
	})
}

func (s *Store) SetName(ctx context.Context, userID, name string, when time.Time) error {
	return s.updateUser(userID, func(r *userRecord) {
		r.user.Name = name
		r.user.UpdatedAt = when.UTC()
	})
}

func (s *Store) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool, when time.Time) error {
	return s.updateUser(userID, func(r *userRecord) {
		r.user.IsTwoFactorEnabled = enabled
		r.user.UpdatedAt = when.UTC()
	})
}

// MarkEmailVerified keeps the first verification time.
func (s *Store) MarkEmailVerified(ctx context.Context, userID string, when time.Time) error {
	return s.updateUser(userID, func(r *userRecord) {
		if r.user.EmailVerified == nil {
			t := when.UTC()
			r.user.EmailVerified = &t
		}
	})
}

func (s *Store) SetRole(ctx context.Context, userID string, role domain.Role, when time.Time) error {
	return s.updateUser(userID, func(r *userRecord) {
		r.user.Role = role
		r.user.UpdatedAt = when.UTC()
	})
}

func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.users, userID)
	delete(s.byEmail, rec.user.Email)
	for k, acct := range s.external {
		if acct.UserID == userID {
			delete(s.external, k)
		}
	}
	for id, tok := range s.tokens {
		if tok.UserID == userID {
			s.deleteTokenLocked(id)
		}
	}
	for id, r := range s.revocations {
		if r.userID == userID {
			delete(s.revocations, id)
		}
	}
	for id, p := range s.posts {
		if p.AuthorID == userID {
			delete(s.posts, id)
		}
	}
	return nil
}

func (s *Store) updateUser(userID string, fn func(*userRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	fn(rec)
	return nil
}

func (s *Store) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.external[externalKey{provider, providerID}]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	rec, ok := s.users[acct.UserID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return rec.snapshot().User, nil
}

func (s *Store) LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.ExternalAccount{}, domain.ErrNotFound
	}
	return s.linkLocked(userID, provider, providerID, email)
}

func (s *Store) linkLocked(userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	key := externalKey{provider, providerID}
	if _, ok := s.external[key]; ok {
		return domain.ExternalAccount{}, domain.ErrExternalAccountExists
	}
	acct := domain.ExternalAccount{
		ID:         uuid.NewString(),
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
		Email:      email,
		CreatedAt:  time.Now().UTC(),
	}
	s.external[key] = acct
	return acct, nil
}

func (s *Store) CreateUserWithExternalAccount(ctx context.Context, nu domain.NewUser, provider, providerID string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.external[externalKey{provider, providerID}]; ok {
		return domain.User{}, domain.ErrExternalAccountExists
	}
	u, err := s.createUserLocked(nu)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := s.linkLocked(u.ID, provider, providerID, nu.Email); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *userRecord) snapshot() domain.UserWithPassword {
	u := r.user
	u.EmailVerified = copyTime(u.EmailVerified)
	u.LastLoginAt = copyTime(u.LastLoginAt)
	return domain.UserWithPassword{User: u, PasswordHash: r.passwordHash}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *Store) ListUsersWithPostCounts(ctx context.Context, limit, offset int) ([]domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.users))
	for _, p := range s.posts {
		counts[p.AuthorID]++
	}
	out := make([]domain.AdminUser, 0, len(s.users))
	for _, rec := range s.users {
		snap := rec.snapshot()
		out = append(out, domain.AdminUser{
			User:        snap.User,
			PostCount:   counts[snap.ID],
			HasPassword: snap.HasPassword(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (s *Store) GetAdminStats(ctx context.Context) (domain.AdminStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := domain.AdminStats{TotalUsers: len(s.users), TotalPosts: len(s.posts)}
	for _, rec := range s.users {
		if rec.user.Role == domain.RoleAdmin {
			st.TotalAdmins++
		}
	}
	return st, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
