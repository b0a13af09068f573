package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-fintrack/logging"
)

// Auther is the default Authenticator
type Auther struct {
	provider    IdentityProvider
	tokens      TokenService
	revocations RevocationStore
	activity    ActivitySink
	logger      Logger
	logProvider LoggerProvider
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	logProvider, logger := logging.ResolveLogger("auth.authenticator", nil, nil)
	return &Auther{
		provider:    provider,
		tokens:      NewTokenServiceFromConfig(opts, logger),
		activity:    noopActivitySink{},
		logger:      logger,
		logProvider: logProvider,
	}
}

// WithLogger overrides the logger
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithLoggerProvider resolves the logger from provider
func (s *Auther) WithLoggerProvider(provider LoggerProvider) *Auther {
	s.logProvider, s.logger = logging.ResolveLogger("auth.authenticator", provider, s.logger)
	return s
}

// WithTokenService replaces the token service
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// WithRevocationStore enables token revocation on logout
func (s *Auther) WithRevocationStore(store RevocationStore) *Auther {
	s.revocations = store
	return s
}

// WithActivitySink sets the audit sink
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// Login verifies credentials and returns a signed token
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Debug("login verify identity error", "error", err)
		recordActivity(ctx, s.activity, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"identifier": identifier, "error": err.Error()},
		})
		return "", err
	}

	token, err := s.tokens.Generate(identity)
	if err != nil {
		return "", err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    identity.ID(),
	})

	return token, nil
}

// IssueToken signs a token for an identity verified elsewhere
func (s *Auther) IssueToken(_ context.Context, identity Identity) (string, error) {
	return s.tokens.Generate(identity)
}

// SessionFromToken validates raw and returns its session
func (s *Auther) SessionFromToken(ctx context.Context, raw string) (Session, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	if s.revocations != nil && claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return sessionFromClaims(claims), nil
}

// IdentityFromSession loads the identity behind session
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	if session == nil {
		return nil, ErrUnableToFindSession
	}
	return s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())
}

// Logout revokes the session token until it would have expired. Without a
// revocation store logout is a client side concern and this is a no-op.
func (s *Auther) Logout(ctx context.Context, session Session) error {
	if session == nil {
		return ErrUnableToFindSession
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    session.GetUserID(),
	})

	if s.revocations == nil || session.GetTokenID() == "" {
		return nil
	}

	ttl := time.Hour
	if exp := session.GetExpiresAt(); exp != nil {
		ttl = time.Until(*exp)
	}
	if ttl <= 0 {
		return nil
	}

	return s.revocations.Revoke(ctx, session.GetTokenID(), ttl)
}

var _ Authenticator = (*Auther)(nil)
