package auth

import "errors"

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrMismatchedHashAndPassword is returned for wrong credentials, including
// unknown identifiers
var ErrMismatchedHashAndPassword = errors.New("invalid credentials")

// ErrTooManyLoginAttempts is returned while an identity is cooling down
var ErrTooManyLoginAttempts = errors.New("too many login attempts, try again later")

// ErrNoEmptyString refuses empty passwords
var ErrNoEmptyString = errors.New("password must not be empty")

// ErrEmailAlreadyInUse is returned when registering a known email
var ErrEmailAlreadyInUse = errors.New("email address is already in use")

// ErrUserSuspended blocks suspended accounts
var ErrUserSuspended = errors.New("user account is suspended")

// ErrUserDisabled blocks disabled accounts
var ErrUserDisabled = errors.New("user account has been disabled")

// ErrTokenExpired is returned for expired tokens
var ErrTokenExpired = errors.New("token is expired")

// ErrTokenMalformed is returned for tokens that fail to parse or verify
var ErrTokenMalformed = errors.New("token is malformed")

// ErrTokenRevoked is returned for tokens revoked by a logout
var ErrTokenRevoked = errors.New("token has been revoked")

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT claims
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// IsAuthError reports whether err should be answered as unauthenticated
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrMismatchedHashAndPassword,
		ErrTokenExpired,
		ErrTokenMalformed,
		ErrTokenRevoked,
		ErrUnableToFindSession,
		ErrUnableToDecodeSession,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
