package domain

import "time"

type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

type User struct {
	ID                 string
	Email              string
	Name               string
	Role               Role
	EmailVerified      *time.Time
	IsTwoFactorEnabled bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastLoginAt        *time.Time
}

func (u User) HasVerifiedEmail() bool { return u.EmailVerified != nil }

type UserWithPassword struct {
	User
	// PasswordHash is empty for accounts created through an OAuth provider.
	PasswordHash string
}

func (u UserWithPassword) HasPassword() bool { return u.PasswordHash != "" }

type NewUser struct {
	Email         string
	Name          string
	PasswordHash  string
	Role          Role
	EmailVerified *time.Time
}

type ExternalAccount struct {
	ID         string
	UserID     string
	Provider   string
	ProviderID string
	Email      string
	CreatedAt  time.Time
}

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
	ProviderGitHub = "github"
)

type TokenPurpose string

const (
	TokenPasswordReset TokenPurpose = "password_reset"
	TokenVerification  TokenPurpose = "verification"
	TokenTwoFactor     TokenPurpose = "two_factor"
)

func (p TokenPurpose) Valid() bool {
	switch p {
	case TokenPasswordReset, TokenVerification, TokenTwoFactor:
		return true
	default:
		return false
	}
}

type OneTimeToken struct {
	ID      string
	Purpose TokenPurpose
	// Token is the plaintext value. Only set on the value returned from
	// issuance; stores keep TokenHash.
	Token     string
	TokenHash string
	Email     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now. A token is
// expired at the exact instant of its expiry.
func (t OneTimeToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Identity is what a successful authentication yields and what a session is
// built from.
type Identity struct {
	ID                 string
	Email              string
	Name               string
	Role               Role
	EmailVerified      *time.Time
	IsTwoFactorEnabled bool
}

func IdentityFromUser(u User) Identity {
	return Identity{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		EmailVerified:      u.EmailVerified,
		IsTwoFactorEnabled: u.IsTwoFactorEnabled,
	}
}

type Session struct {
	ID                 string
	UserID             string
	Email              string
	Name               string
	Role               Role
	IsTwoFactorEnabled bool
	IssuedAt           time.Time
	ExpiresAt          time.Time
}

type Post struct {
	ID        string
	Title     string
	Content   string
	AuthorID  string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PostWithAuthor struct {
	Post
	AuthorName  string
	AuthorEmail string
}

type AdminUser struct {
	User
	PostCount   int
	HasPassword bool
}

type AdminStats struct {
	TotalUsers  int
	TotalPosts  int
	TotalAdmins int
}
