package social

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/logging"
)

const loggerName = "auth.social"

// TokenIssuer signs fintrack tokens for identities verified elsewhere.
type TokenIssuer interface {
	IssueToken(ctx context.Context, identity auth.Identity) (string, error)
}

// Config configures the login flow.
type Config struct {
	StateSecret          string
	StateTTL             time.Duration
	AllowSignup          bool
	RequireEmailVerified bool
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithProvider registers a provider under its name.
func WithProvider(provider Provider) Option {
	return func(a *Authenticator) {
		if provider != nil {
			a.providers[provider.Name()] = provider
		}
	}
}

// WithStateManager replaces the state manager derived from Config.
func WithStateManager(sm StateManager) Option {
	return func(a *Authenticator) {
		a.state = sm
	}
}

// WithLinkingStrategy replaces the default linking strategy.
func WithLinkingStrategy(ls LinkingStrategy) Option {
	return func(a *Authenticator) {
		a.linking = ls
	}
}

// WithActivitySink sets the audit sink.
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(a *Authenticator) {
		a.activity = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Authenticator runs the OAuth2 authorization code flow with PKCE and ends
// it with a fintrack token.
type Authenticator struct {
	providers map[string]Provider
	state     StateManager
	linking   LinkingStrategy
	accounts  AccountRepository
	users     UserRepository
	tokens    TokenIssuer
	activity  auth.ActivitySink
	logger    logging.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(accounts AccountRepository, users UserRepository, tokens TokenIssuer, cfg Config, opts ...Option) *Authenticator {
	_, logger := logging.ResolveLogger(loggerName, nil, nil)
	a := &Authenticator{
		providers: make(map[string]Provider),
		accounts:  accounts,
		users:     users,
		tokens:    tokens,
		logger:    logger,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.state == nil {
		a.state = NewStateManagerFromSecret(cfg.StateSecret, cfg.StateTTL)
	}
	if a.linking == nil {
		a.linking = &DefaultLinkingStrategy{
			AllowSignup:          cfg.AllowSignup,
			RequireEmailVerified: cfg.RequireEmailVerified,
		}
	}

	return a
}

// AuthRedirect is the start of a flow.
type AuthRedirect struct {
	URL      string `json:"url"`
	State    string `json:"state"`
	Provider string `json:"provider"`
}

// AuthResult is a completed flow.
type AuthResult struct {
	User        *auth.User
	Token       string
	IsNewUser   bool
	Provider    string
	RedirectURL string
}

// Providers returns the registered provider names, sorted.
func (a *Authenticator) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BeginAuth returns the consent URL and the state token for providerName.
func (a *Authenticator) BeginAuth(_ context.Context, providerName, redirectURL string) (*AuthRedirect, error) {
	provider, ok := a.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	token, err := a.state.Encode(&OAuthState{
		Provider:     providerName,
		CodeVerifier: verifier,
		RedirectURL:  redirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(token, WithPKCE(computeCodeChallenge(verifier), "S256")),
		State:    token,
		Provider: providerName,
	}, nil
}

// CompleteAuth verifies state, exchanges code, resolves the user and issues
// a token.
func (a *Authenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken string) (*AuthResult, error) {
	state, err := a.state.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		if errors.Is(err, ErrInvalidState) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	provider, ok := a.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, err)
	}
	if profile.Provider == "" {
		profile.Provider = providerName
	}

	result, err := a.linking.ResolveUser(ctx, LinkingContext{
		Profile:  profile,
		Accounts: a.accounts,
		Users:    a.users,
	})
	if err != nil {
		return nil, err
	}
	if result == nil || result.User == nil {
		return nil, auth.ErrIdentityNotFound
	}
	if err := auth.EnsureAuthenticatable(result.User); err != nil {
		return nil, err
	}

	account := &Account{
		UserID:         result.User.ID,
		Provider:       providerName,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Name:           profile.Name,
		AvatarURL:      profile.AvatarURL,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
	}
	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt
		account.TokenExpiresAt = &expiresAt
	}
	if err := a.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save social account: %w", err)
	}

	jwt, err := a.tokens.IssueToken(ctx, result.User.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	a.record(ctx, auth.ActivityEvent{
		EventType:  auth.ActivityEventSocialLogin,
		UserID:     result.User.ID.String(),
		OccurredAt: time.Now().UTC(),
		Metadata: map[string]any{
			"provider":         providerName,
			"provider_user_id": profile.ProviderUserID,
			"is_new_user":      result.IsNewUser,
		},
	})

	return &AuthResult{
		User:        result.User,
		Token:       jwt,
		IsNewUser:   result.IsNewUser,
		Provider:    providerName,
		RedirectURL: state.RedirectURL,
	}, nil
}

func (a *Authenticator) record(ctx context.Context, event auth.ActivityEvent) {
	if a.activity == nil {
		return
	}
	if err := a.activity.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink failed", "event", string(event.EventType), "error", err)
	}
}
