package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-fintrack/logging"
	"github.com/google/uuid"
)

// Logger is the structured logger used by the package.
type Logger = logging.Logger

// LoggerProvider hands out named loggers.
type LoggerProvider = logging.LoggerProvider

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetRole() string
	GetTokenID() string
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiresAt() *time.Time
	GetData() map[string]any
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	IssueToken(ctx context.Context, identity Identity) (string, error)
	SessionFromToken(ctx context.Context, token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
	Logout(ctx context.Context, session Session) error
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
	PhotoURL() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// TokenService issues and validates signed tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(token string) (*JWTClaims, error)
}

// RevocationStore remembers tokens revoked before they expire
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
