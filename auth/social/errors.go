package social

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotFound is returned for providers that are not configured.
	ErrProviderNotFound = errors.New("social provider not found")
	// ErrInvalidState is returned when the OAuth state is invalid or tampered.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrStateExpired is returned when the OAuth state has expired.
	ErrStateExpired = errors.New("oauth state expired")
	// ErrTokenExchangeFailed is returned when a provider rejects the code.
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	// ErrUserInfoFailed is returned when the profile cannot be fetched.
	ErrUserInfoFailed = errors.New("failed to fetch user info")
	// ErrEmailNotVerified is returned when a profile email is unverified.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrSignupNotAllowed is returned when a new user would be created but
	// signup is disabled.
	ErrSignupNotAllowed = errors.New("signup not allowed")
)

// ProviderError carries the details of a failed provider call.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	scope := e.Provider
	if e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	}

	switch {
	case e.Description != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}
	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wrapProviderError keeps both base and the provider failure matchable.
func wrapProviderError(base error, err error) error {
	return fmt.Errorf("%w: %w", base, err)
}
