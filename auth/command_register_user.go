package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-fintrack/logging"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

// RegisterUserMessage carries a sign up request
type RegisterUserMessage struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the registration payload
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password,
			validation.Required,
			validation.Length(MinPasswordLength, 0).Error(fmt.Sprintf("the password must be at least %d characters", MinPasswordLength)),
		),
	)
}

// RegisterUserHandler creates password accounts
type RegisterUserHandler struct {
	users    Users
	activity ActivitySink
	logger   Logger
}

// NewRegisterUserHandler creates a handler storing users in users
func NewRegisterUserHandler(users Users) *RegisterUserHandler {
	return &RegisterUserHandler{
		users:    users,
		activity: noopActivitySink{},
		logger:   logging.Default(),
	}
}

// WithActivitySink sets the audit sink
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute validates event and stores the new user
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled during user registration: %w", ctx.Err())
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	event.Email = strings.ToLower(strings.TrimSpace(event.Email))
	event.DisplayName = strings.TrimSpace(event.DisplayName)

	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user := &User{
		DisplayName: event.DisplayName,
		Email:       event.Email,
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	if user, err = h.users.Create(ctx, user); err != nil {
		return nil, err
	}

	h.logger.Info("user registered", "user_id", user.ID.String())
	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
	})

	return user, nil
}
