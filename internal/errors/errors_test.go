package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeInternal, "query leagues")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeInternal, GetCode(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAppError_CodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("league not found")))
	assert.True(t, IsConflict(Conflictf("job already running for %s", "season:42")))
	assert.True(t, IsValidation(ValidationField("name", "required")))
	assert.False(t, IsNotFound(errors.New("plain")))

	// Predicates see through wrapping.
	wrapped := fmt.Errorf("start ingest: %w", Conflict("duplicate"))
	assert.True(t, IsConflict(wrapped))
}

func TestGetField(t *testing.T) {
	assert.Equal(t, "name", GetField(ValidationField("name", "required")))
	assert.Empty(t, GetField(errors.New("plain")))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: `Key (external_key)=(epl-2026) already exists.`,
	}

	err := MapDBError(pgErr)
	assert.True(t, IsConflict(err))
	assert.Equal(t, "external_key", GetField(err))
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (id)=(abc) is still referenced from table "teams".`,
	}

	err := MapDBError(pgErr)
	assert.True(t, IsForeignKey(err))
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "Team")
}

func TestMapDBError_PassesThroughUnknown(t *testing.T) {
	plain := errors.New("not a db error")
	assert.Equal(t, plain, MapDBError(plain))
	assert.NoError(t, MapDBError(nil))
}
