// Package social adds OAuth2 sign-in to the auth package: providers, signed
// state, linked accounts and the login flow that ends in a fintrack token.
package social

import (
	"context"
	"time"
)

// Provider is an OAuth2 identity provider.
type Provider interface {
	// Name returns the provider identifier, e.g. "google".
	Name() string

	// AuthCodeURL returns the consent page URL carrying state.
	AuthCodeURL(state string, opts ...AuthCodeOption) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error)

	// UserInfo fetches the profile behind token.
	UserInfo(ctx context.Context, token *Token) (*Profile, error)
}

// AuthCodeOption configures the authorization URL.
type AuthCodeOption func(*AuthCodeConfig)

// WithScopes adds scopes to the request.
func WithScopes(scopes ...string) AuthCodeOption {
	return func(c *AuthCodeConfig) {
		c.Scopes = append(c.Scopes, scopes...)
	}
}

// WithPKCE sets the PKCE code challenge.
func WithPKCE(codeChallenge, method string) AuthCodeOption {
	return func(c *AuthCodeConfig) {
		c.CodeChallenge = codeChallenge
		c.CodeChallengeMethod = method
	}
}

// WithPrompt sets the prompt parameter, e.g. "consent" or "select_account".
func WithPrompt(prompt string) AuthCodeOption {
	return func(c *AuthCodeConfig) {
		c.Prompt = prompt
	}
}

// ExchangeOption configures the token exchange.
type ExchangeOption func(*ExchangeConfig)

// WithCodeVerifier sets the PKCE code verifier.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *ExchangeConfig) {
		c.CodeVerifier = verifier
	}
}

// AuthCodeConfig is the applied form of AuthCodeOption values.
type AuthCodeConfig struct {
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Prompt              string
}

// ExchangeConfig is the applied form of ExchangeOption values.
type ExchangeConfig struct {
	CodeVerifier string
}

// ApplyAuthCodeOptions applies opts on top of the provider's scopes.
func ApplyAuthCodeOptions(scopes []string, opts ...AuthCodeOption) AuthCodeConfig {
	cfg := AuthCodeConfig{Scopes: append([]string(nil), scopes...)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ApplyExchangeOptions applies opts.
func ApplyExchangeOptions(opts ...ExchangeOption) ExchangeConfig {
	cfg := ExchangeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Token is an OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// Profile is the normalized user information of a provider.
type Profile struct {
	ProviderUserID string
	Provider       string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}
