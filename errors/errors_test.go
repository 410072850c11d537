package errors

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowbatch/logging"
)

func TestNewInvalidKeyError(t *testing.T) {
	err := NewInvalidKeyError("simples", "_i_do_not_exist")

	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeInvalidKey))
	assert.True(t, stdErrors.Is(err, ErrInvalidKey))
	assert.False(t, stdErrors.Is(err, ErrRestrictedKey))
	assert.Contains(t, err.Error(), `"_i_do_not_exist" is not allowed on simples`)

	var appErr *AppError
	require.True(t, stdErrors.As(err, &appErr))
	assert.Equal(t, "_i_do_not_exist", appErr.Details()["key"])
	assert.Equal(t, "simples", appErr.Details()["model"])
}

func TestNewRestrictedKeyError(t *testing.T) {
	err := NewRestrictedKeyError("composite_pks", []string{"a", "b"})
	assert.Equal(t, ErrCodeRestrictedKey, GetErrorCode(err))
	assert.Contains(t, err.Error(), "(a, b)")
	assert.True(t, IsValidation(err))
}

func TestWrapDatabaseError(t *testing.T) {
	original := logging.GetLogger()
	logging.SetLogger(logging.NewNoopLogger())
	defer logging.SetLogger(original)

	ctx := context.Background()
	assert.Nil(t, WrapDatabaseError(ctx, nil, "insert"))

	cause := stdErrors.New("UNIQUE constraint failed")
	err := WrapDatabaseError(ctx, cause, "insert simples")
	assert.Equal(t, ErrCodeDatabase, GetErrorCode(err))
	assert.True(t, stdErrors.Is(err, cause))
	assert.False(t, IsValidation(err))

	notFound := NewError(ErrCodeNotFound, "no row")
	assert.Same(t, notFound, WrapDatabaseError(ctx, notFound, "update"))
}

func TestWrapConstraintError(t *testing.T) {
	original := logging.GetLogger()
	logging.SetLogger(logging.NewNoopLogger())
	defer logging.SetLogger(original)

	ctx := context.Background()
	assert.Nil(t, WrapConstraintError(ctx, nil, "insert"))

	cause := stdErrors.New("UNIQUE constraint failed: books.id")
	err := WrapConstraintError(ctx, cause, "insert_many")
	assert.Equal(t, ErrCodeConstraintViolation, GetErrorCode(err))
	assert.True(t, stdErrors.Is(err, ErrConstraintViolation))
	assert.True(t, stdErrors.Is(err, cause))
	assert.True(t, IsStorage(err))
	assert.False(t, IsValidation(err))
	assert.True(t, IsStorage(WrapDatabaseError(ctx, cause, "insert_many")))
	assert.False(t, IsStorage(NewInvalidKeyError("books", "nope")))
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := NewError(ErrCodeInvalidInput, "bad")
	derived := base.WithContext("index", 3)

	assert.Empty(t, base.Details())
	assert.Equal(t, 3, derived.Details()["index"])
	assert.Equal(t, base.Stack(), derived.Stack())
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(stdErrors.New("plain")))
	assert.Equal(t, ErrCodeMissingConfiguration, GetErrorCode(NewMissingConfigurationError("m", "x")))
	assert.Equal(t, ErrCodeAssociationServiceMissing, GetErrorCode(NewAssociationServiceMissingError("books", "chapters")))
}
