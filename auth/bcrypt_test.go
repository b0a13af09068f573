package auth_test

import (
	"testing"

	"github.com/goliatone/go-fintrack/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hash, err := auth.HashPassword("secret1")
		require.NoError(t, err)
		assert.NotEqual(t, "secret1", hash)
		assert.NoError(t, auth.ComparePasswordAndHash("secret1", hash))
	})

	t.Run("mismatch", func(t *testing.T) {
		hash := mustHash(t, "secret1")
		assert.ErrorIs(t, auth.ComparePasswordAndHash("secret2", hash), auth.ErrMismatchedHashAndPassword)
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})

	t.Run("account without password", func(t *testing.T) {
		assert.ErrorIs(t, auth.ComparePasswordAndHash("anything", ""), auth.ErrMismatchedHashAndPassword)
	})
}
