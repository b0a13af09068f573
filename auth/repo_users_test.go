package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	users := auth.NewUsersRepository(newTestDB(t))

	created, err := users.Create(ctx, &auth.User{
		Email:        "  Ana@Example.com ",
		DisplayName:  "Ana",
		PasswordHash: mustHash(t, "secret1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Equal(t, auth.RoleMember, created.Role)
	assert.Equal(t, auth.UserStatusActive, created.Status)

	t.Run("lookup by email and id", func(t *testing.T) {
		byEmail, err := users.GetByIdentifier(ctx, "ana@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)

		byID, err := users.GetByIdentifier(ctx, created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "Ana", byID.DisplayName)

		_, err = users.GetByID(ctx, uuid.NewString())
		assert.True(t, repository.IsRecordNotFound(err), "unexpected error: %v", err)

		_, err = users.GetByIdentifier(ctx, "missing@example.com")
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := users.Create(ctx, &auth.User{Email: "ana@example.com"})
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyInUse)
	})

	t.Run("login tracking", func(t *testing.T) {
		user, err := users.GetByID(ctx, created.ID.String())
		require.NoError(t, err)

		require.NoError(t, users.TrackAttemptedLogin(ctx, user))
		require.NoError(t, users.TrackAttemptedLogin(ctx, user))

		stored, err := users.GetByID(ctx, created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, 2, stored.LoginAttempts)
		require.NotNil(t, stored.LoginAttemptAt)

		require.NoError(t, users.TrackSuccessfulLogin(ctx, stored))

		stored, err = users.GetByID(ctx, created.ID.String())
		require.NoError(t, err)
		assert.Zero(t, stored.LoginAttempts)
		assert.Nil(t, stored.LoginAttemptAt)
		assert.NotNil(t, stored.LoggedInAt)
		assert.Equal(t, "Ana", stored.DisplayName, "counter updates keep the profile")
		assert.Equal(t, "ana@example.com", stored.Email)
	})

	t.Run("criteria narrow lookups", func(t *testing.T) {
		suspended := func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.status = ?", auth.UserStatusSuspended)
		}
		_, err := users.GetByIdentifier(ctx, "ana@example.com", suspended)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})
}
