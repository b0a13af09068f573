package auth_test

import (
	"context"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()
	users := auth.NewUsersRepository(newTestDB(t))
	sink := &sinkRecorder{}
	handler := auth.NewRegisterUserHandler(users).WithActivitySink(sink).WithLogger(logging.Nop())

	user, err := handler.Execute(ctx, auth.RegisterUserMessage{
		DisplayName: " Ana ",
		Email:       "Ana@Example.com",
		Password:    "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NoError(t, auth.ComparePasswordAndHash("secret1", user.PasswordHash))
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventUserRegistered}, sink.types())

	t.Run("duplicate email", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.RegisterUserMessage{
			DisplayName: "Other",
			Email:       "ana@example.com",
			Password:    "secret2",
		})
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyInUse)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := handler.Execute(ctx, auth.RegisterUserMessage{
			Email:    "not-an-email",
			Password: "123",
		})
		require.Error(t, err)

		var verrs validation.Errors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs, "displayName")
		assert.Contains(t, verrs, "email")
		assert.Contains(t, verrs, "password")
		assert.Contains(t, verrs["password"].Error(), "at least 6 characters")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := handler.Execute(cancelled, auth.RegisterUserMessage{
			DisplayName: "Late",
			Email:       "late@example.com",
			Password:    "secret1",
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
