package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() auth.Identity {
	user := &auth.User{
		ID:          uuid.MustParse("0b5b8d5e-5f43-4f3e-9d53-1a1b8f4d2c11"),
		Email:       "ana@example.com",
		DisplayName: "Ana",
		PhotoURL:    "https://example.com/ana.png",
		Role:        auth.RoleMember,
	}
	return user.Identity()
}

func TestTokenServiceRoundTrip(t *testing.T) {
	ts := auth.NewTokenServiceFromConfig(testConfig{}, logging.Nop())

	token, err := ts.Generate(testIdentity())
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "0b5b8d5e-5f43-4f3e-9d53-1a1b8f4d2c11", claims.UserID())
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, auth.RoleMember, claims.UserRole)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "fintrack-test", claims.Issuer)
}

func TestTokenServiceRejects(t *testing.T) {
	ts := auth.NewTokenServiceFromConfig(testConfig{}, logging.Nop())

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		token, err := ts.SignClaims(&auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "fintrack-test",
				Audience:  jwt.ClaimStrings{"fintrack-cli"},
				Subject:   "u1",
				IssuedAt:  jwt.NewNumericDate(past),
				ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
			},
		})
		require.NoError(t, err)

		_, err = ts.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("other signing key", func(t *testing.T) {
		other := auth.NewTokenService([]byte("another-key"), 1, "fintrack-test", jwt.ClaimStrings{"fintrack-cli"}, logging.Nop())
		token, err := other.Generate(testIdentity())
		require.NoError(t, err)

		_, err = ts.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := auth.NewTokenService([]byte("test-signing-key"), 1, "someone-else", jwt.ClaimStrings{"fintrack-cli"}, logging.Nop())
		token, err := other.Generate(testIdentity())
		require.NoError(t, err)

		_, err = ts.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ts.Validate("not-a-token")
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
		assert.True(t, auth.IsAuthError(err))
	})
}

func TestTokenServiceAcceptsAnyConfiguredAudience(t *testing.T) {
	key := []byte("test-signing-key")
	ts := auth.NewTokenService(key, 1, "fintrack-test", jwt.ClaimStrings{"fintrack-web", "fintrack-cli"}, logging.Nop())

	cliOnly := auth.NewTokenService(key, 1, "fintrack-test", jwt.ClaimStrings{"fintrack-cli"}, logging.Nop())
	token, err := cliOnly.Generate(testIdentity())
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, jwt.ClaimStrings{"fintrack-cli"}, claims.Audience)

	elsewhere := auth.NewTokenService(key, 1, "fintrack-test", jwt.ClaimStrings{"elsewhere"}, logging.Nop())
	token, err = elsewhere.Generate(testIdentity())
	require.NoError(t, err)

	_, err = ts.Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}
