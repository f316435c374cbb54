package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New("SOME_CODE", "something broke")
	assert.Equal(t, "something broke", err.Error())

	wrapped := Wrap(stderrors.New("root cause"), "SOME_CODE", "something broke")
	assert.Equal(t, "something broke: root cause", wrapped.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(cause, ErrRemote.Code, "remote call failed")
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(stderrors.New("x"), ErrNotFound.Code, "missing")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrRemote))

	// Matching survives further wrapping with %w.
	deeper := fmt.Errorf("context: %w", err)
	assert.True(t, Is(deeper, ErrNotFound))

	assert.False(t, Is(nil, ErrNotFound))
	assert.False(t, Is(stderrors.New("plain"), ErrNotFound))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := Clone(ErrValidation, "bad input")
	assert.Equal(t, typed, FromError(typed))

	plain := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
}

func TestCloneOverridesMessage(t *testing.T) {
	c := Clone(ErrNotFound, "course 42 not found")
	assert.Equal(t, ErrNotFound.Code, c.Code)
	assert.Equal(t, "course 42 not found", c.Message)
	// Original untouched.
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}
