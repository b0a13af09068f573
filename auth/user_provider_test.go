package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	hash := mustHash(t, "secret1")

	newUser := func() *auth.User {
		return &auth.User{
			ID:           uuid.New(),
			Email:        "ana@example.com",
			DisplayName:  "Ana",
			Role:         auth.RoleMember,
			PasswordHash: hash,
		}
	}

	t.Run("valid credentials", func(t *testing.T) {
		store := &MockUserTracker{}
		user := newUser()
		store.On("GetByIdentifier", ctx, "ana@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		identity, err := auth.NewUserProvider(store).WithLogger(logging.Nop()).VerifyIdentity(ctx, "ana@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "Ana", identity.DisplayName())
		store.AssertExpectations(t)
	})

	t.Run("unknown user reads as bad credentials", func(t *testing.T) {
		store := &MockUserTracker{}
		store.On("GetByIdentifier", ctx, "nobody@example.com").
			Return(nil, fmt.Errorf("%w: nobody@example.com", auth.ErrIdentityNotFound))

		_, err := auth.NewUserProvider(store).VerifyIdentity(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("wrong password is tracked", func(t *testing.T) {
		store := &MockUserTracker{}
		user := newUser()
		store.On("GetByIdentifier", ctx, "ana@example.com").Return(user, nil)
		store.On("TrackAttemptedLogin", ctx, user).Return(nil)

		_, err := auth.NewUserProvider(store).VerifyIdentity(ctx, "ana@example.com", "wrong")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
		store.AssertCalled(t, "TrackAttemptedLogin", ctx, user)
		store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
	})

	t.Run("locked out within cool down", func(t *testing.T) {
		store := &MockUserTracker{}
		user := newUser()
		recent := time.Now().Add(-time.Minute)
		user.LoginAttempts = auth.MaxLoginAttempts
		user.LoginAttemptAt = &recent
		store.On("GetByIdentifier", ctx, "ana@example.com").Return(user, nil)

		_, err := auth.NewUserProvider(store).VerifyIdentity(ctx, "ana@example.com", "secret1")
		assert.ErrorIs(t, err, auth.ErrTooManyLoginAttempts)
	})

	t.Run("attempts reset after cool down", func(t *testing.T) {
		store := &MockUserTracker{}
		user := newUser()
		old := time.Now().Add(-48 * time.Hour)
		user.LoginAttempts = auth.MaxLoginAttempts + 3
		user.LoginAttemptAt = &old
		store.On("GetByIdentifier", ctx, "ana@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		_, err := auth.NewUserProvider(store).VerifyIdentity(ctx, "ana@example.com", "secret1")
		assert.NoError(t, err)
	})

	t.Run("suspended account", func(t *testing.T) {
		store := &MockUserTracker{}
		user := newUser()
		user.Status = auth.UserStatusSuspended
		store.On("GetByIdentifier", ctx, "ana@example.com").Return(user, nil)

		_, err := auth.NewUserProvider(store).VerifyIdentity(ctx, "ana@example.com", "secret1")
		assert.ErrorIs(t, err, auth.ErrUserSuspended)
	})
}
