package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct domain error", func(t *testing.T) {
		err := New(CodeNotFound, "account is not whitelisted")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		inner := New(CodeInvalidArgument, "invalid amount")
		wrapped := fmt.Errorf("custom allocation: %w", inner)
		assert.True(t, HasCode(wrapped, CodeInvalidArgument))
	})

	t.Run("false for plain errors", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})

	t.Run("false for nil", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "store unavailable")

	require.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "store unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	t.Run("nil has no code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(nil))
	})

	t.Run("plain errors collapse to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("domain code survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeForbidden, "account is blacklisted"))
		assert.Equal(t, CodeForbidden, CodeOf(err))
	})
}

func TestMessageOf(t *testing.T) {
	t.Run("domain message is exposed", func(t *testing.T) {
		assert.Equal(t, "invalid amount", MessageOf(New(CodeInvalidArgument, "invalid amount")))
	})

	t.Run("plain error text stays hidden", func(t *testing.T) {
		assert.Equal(t, "internal error", MessageOf(errors.New("pq: password authentication failed")))
	})
}
