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

const userColumns = `id, email, name, password_hash, role, email_verified, is_two_factor_enabled, created_at, updated_at, last_login_at`

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

func scanUser(row scanner) (domain.UserWithPassword, error) {
	var (
		u          domain.UserWithPassword
		idUUID     pgtype.UUID
		nameText   pgtype.Text
		hashText   pgtype.Text
		role       string
		verifiedTS pgtype.Timestamptz
		lastLogin  pgtype.Timestamptz
	)
	err := row.Scan(
		&idUUID,
		&u.Email,
		&nameText,
		&hashText,
		&role,
		&verifiedTS,
		&u.IsTwoFactorEnabled,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		return domain.UserWithPassword{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.Name = textOrEmpty(nameText)
	u.PasswordHash = textOrEmpty(hashText)
	u.Role = domain.Role(role)
	u.EmailVerified = timestamptzPtr(verifiedTS)
	u.LastLoginAt = timestamptzPtr(lastLogin)
	return u, nil
}

func (s *UsersStore) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	return createUser(ctx, conn(ctx, s.pool), nu)
}

func createUser(ctx context.Context, q querier, nu domain.NewUser) (domain.User, error) {
	role := nu.Role
	if role == "" {
		role = domain.RoleUser
	}
	sql := `
		INSERT INTO users (email, name, password_hash, role, email_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	u, err := scanUser(q.QueryRow(ctx, sql, nu.Email, nullIfEmpty(nu.Name), nullIfEmpty(nu.PasswordHash), string(role), nu.EmailVerified))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u.User, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.UserWithPassword, error) {
	uid, ok := parseUUID(id)
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	u, err := scanUser(conn(ctx, s.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	u, err := scanUser(conn(ctx, s.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	return s.exec(ctx, "set last login", `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, when)
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string, when time.Time) error {
	return s.exec(ctx, "set password hash", `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, userID, passwordHash, when)
}

func (s *UsersStore) SetName(ctx context.Context, userID, name string, when time.Time) error {
	return s.exec(ctx, "set name", `UPDATE users SET name = $2, updated_at = $3 WHERE id = $1`, userID, name, when)
}

func (s *UsersStore) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool, when time.Time) error {
	return s.exec(ctx, "set two factor", `UPDATE users SET is_two_factor_enabled = $2, updated_at = $3 WHERE id = $1`, userID, enabled, when)
}

// MarkEmailVerified keeps the first verification time so that repeating it
// is harmless.
func (s *UsersStore) MarkEmailVerified(ctx context.Context, userID string, when time.Time) error {
	return s.exec(ctx, "mark email verified", `UPDATE users SET email_verified = COALESCE(email_verified, $2) WHERE id = $1`, userID, when)
}

func (s *UsersStore) SetRole(ctx context.Context, userID string, role domain.Role, when time.Time) error {
	return s.exec(ctx, "set role", `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`, userID, string(role), when)
}

// DeleteUser relies on ON DELETE CASCADE for tokens, accounts, revocations
// and posts.
func (s *UsersStore) DeleteUser(ctx context.Context, userID string) error {
	return s.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, userID)
}

func (s *UsersStore) exec(ctx context.Context, op, sql, userID string, args ...any) error {
	uid, ok := parseUUID(userID)
	if !ok {
		return domain.ErrNotFound
	}
	tag, err := conn(ctx, s.pool).Exec(ctx, sql, append([]any{uid}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	const q = `
		SELECT u.id, u.email, u.name, u.password_hash, u.role, u.email_verified,
		       u.is_two_factor_enabled, u.created_at, u.updated_at, u.last_login_at
		FROM external_accounts a
		JOIN users u ON u.id = a.user_id
		WHERE a.provider = $1 AND a.provider_id = $2
	`
	u, err := scanUser(conn(ctx, s.pool).QueryRow(ctx, q, provider, providerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by external account: %w", err)
	}
	return u.User, nil
}

func (s *UsersStore) LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	uid, ok := parseUUID(userID)
	if !ok {
		return domain.ExternalAccount{}, domain.ErrNotFound
	}
	return linkExternalAccount(ctx, conn(ctx, s.pool), uid, provider, providerID, email)
}

func linkExternalAccount(ctx context.Context, q querier, userID pgtype.UUID, provider, providerID, email string) (domain.ExternalAccount, error) {
	const sql = `
		INSERT INTO external_accounts (user_id, provider, provider_id, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, provider, provider_id, email, created_at
	`
	var (
		acct      domain.ExternalAccount
		idUUID    pgtype.UUID
		userUUID  pgtype.UUID
		emailText pgtype.Text
	)
	err := q.QueryRow(ctx, sql, userID, provider, providerID, nullIfEmpty(email)).Scan(
		&idUUID,
		&userUUID,
		&acct.Provider,
		&acct.ProviderID,
		&emailText,
		&acct.CreatedAt,
	)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return domain.ExternalAccount{}, domain.ErrExternalAccountExists
		}
		return domain.ExternalAccount{}, fmt.Errorf("link external account: %w", err)
	}
	acct.ID = uuidOrEmpty(idUUID)
	acct.UserID = uuidOrEmpty(userUUID)
	acct.Email = textOrEmpty(emailText)
	return acct, nil
}

func (s *UsersStore) CreateUserWithExternalAccount(ctx context.Context, nu domain.NewUser, provider, providerID string) (domain.User, error) {
	var u domain.User
	err := inTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		u, err = createUser(ctx, tx, nu)
		if err != nil {
			return err
		}
		uid, _ := parseUUID(u.ID)
		_, err = linkExternalAccount(ctx, tx, uid, provider, providerID, nu.Email)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func mapUserWriteError(err error) error {
	if name, ok := uniqueConstraint(err); ok {
		switch name {
		case "users_email_uq":
			return domain.ErrEmailAlreadyInUse
		default:
			return fmt.Errorf("unique violation (%s): %w", name, err)
		}
	}
	return fmt.Errorf("create user: %w", err)
}
