package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	err := MapDBError(context.DeadlineExceeded)
	assert.True(t, IsUnavailable(err))

	err = MapDBError(context.Canceled)
	assert.True(t, IsUnavailable(err))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: "Key (email)=(bob@example.com) already exists.",
	}

	err := MapDBError(pgErr)
	require.True(t, IsConflict(err))

	appErr := As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "email", appErr.Field)
}

func TestMapDBError_UniqueViolationNoDetail(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
	require.True(t, IsConflict(err))
	assert.Empty(t, As(err).Field)
}

func TestMapDBError_CheckViolation(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
	assert.True(t, IsValidation(err))

	err = MapDBError(&pgconn.PgError{Code: pgerrcode.NotNullViolation})
	assert.True(t, IsValidation(err))
}

func TestMapDBError_OtherPgError(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	assert.True(t, IsInternal(err))
}

func TestMapDBError_UnrecognizedPassesThrough(t *testing.T) {
	plain := errors.New("not a db error")
	assert.Equal(t, plain, MapDBError(plain))
}
