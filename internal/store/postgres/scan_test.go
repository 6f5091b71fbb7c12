package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueConstraint(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_uq"})
	name, ok := uniqueConstraint(err)
	require.True(t, ok)
	assert.Equal(t, "users_email_uq", name)

	_, ok = uniqueConstraint(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = uniqueConstraint(errors.New("boom"))
	assert.False(t, ok)
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(fmt.Errorf("insert post: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(errors.New("boom")))
}

func TestMapUserWriteError(t *testing.T) {
	err := mapUserWriteError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_uq"})
	assert.Equal(t, "email_taken", err.Error())

	err = mapUserWriteError(&pgconn.PgError{Code: "23505", ConstraintName: "other_uq"})
	assert.Contains(t, err.Error(), "other_uq")
}

func TestParseUUID(t *testing.T) {
	const id = "0f8fad5b-d9cb-469f-a165-70867728950e"
	u, ok := parseUUID(id)
	require.True(t, ok)
	assert.Equal(t, id, uuidOrEmpty(u))

	_, ok = parseUUID("not-a-uuid")
	assert.False(t, ok)

	_, ok = parseUUID("")
	assert.False(t, ok)
}

type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d columns, got %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		p, ok := dest[i].(*int64)
		if !ok {
			continue
		}
		*p = v.(int64)
	}
	return nil
}

func TestExtraScannerAppendsColumns(t *testing.T) {
	var a, b int64
	s := extraScanner{row: fakeRow{values: []any{int64(1), int64(2)}}, extra: []any{&b}}
	require.NoError(t, s.Scan(&a))
	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), b)
}
