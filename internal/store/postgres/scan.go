package postgres

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type scanner interface {
	Scan(dest ...any) error
}

// Postgres SQLSTATE codes the stores translate into domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pgErrorCode(err error) (*pgconn.PgError, bool) {
	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) {
		return nil, false
	}
	return pgerr, true
}

func uniqueConstraint(err error) (string, bool) {
	if pgerr, ok := pgErrorCode(err); ok && pgerr.Code == uniqueViolation {
		return pgerr.ConstraintName, true
	}
	return "", false
}

func isForeignKeyViolation(err error) bool {
	pgerr, ok := pgErrorCode(err)
	return ok && pgerr.Code == foreignKeyViolation
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func textOrEmpty(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time
	return &tt
}

func uuidOrEmpty(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// parseUUID treats malformed ids as missing rows rather than query errors.
func parseUUID(s string) (pgtype.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: id, Valid: true}, true
}
