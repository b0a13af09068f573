package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-repository-bun"
)

// UserTracker is a store we can use to retrieve users
type UserTracker interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider handles users
type UserProvider struct {
	store    UserTracker
	logger   Logger
	provider LoggerProvider
}

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	provider, logger := logging.ResolveLogger("auth.user_provider", nil, nil)
	return &UserProvider{
		store:    store,
		logger:   logger,
		provider: provider,
	}
}

// WithLogger overrides the logger
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithLoggerProvider resolves the logger from provider
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = logging.ResolveLogger("auth.user_provider", provider, u.logger)
	return u
}

// VerifyIdentity will find the user, compare to the password, and return identity
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, fmt.Errorf("failed to retrieve user during verification: %w", err)
	}

	if err := EnsureAuthenticatable(user); err != nil {
		return nil, err
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate login attempt cooldown: %w", err)
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	//if we have too many attempts in the given window, cool off!
	if user.LoginAttempts >= MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, fmt.Errorf("failed to track login attempt: %w", err2)
		}

		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return user.Identity(), nil
}

// FindIdentityByIdentifier loads an authenticatable identity
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := EnsureAuthenticatable(user); err != nil {
		return nil, err
	}

	return user.Identity(), nil
}

// EnsureAuthenticatable rejects missing, suspended and disabled users
func EnsureAuthenticatable(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	user.EnsureStatus()
	return statusAuthError(user.Status)
}
