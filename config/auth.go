package config

// AuthConfig is the token section. It satisfies auth.Config.
type AuthConfig struct {
	SigningKey      string   `mapstructure:"signing_key"`
	ContextKey      string   `mapstructure:"context_key"`
	TokenExpiration int      `mapstructure:"token_expiration"`
	AuthScheme      string   `mapstructure:"auth_scheme"`
	Issuer          string   `mapstructure:"issuer"`
	Audience        []string `mapstructure:"audience"`
}

func (a AuthConfig) GetSigningKey() string {
	return a.SigningKey
}

func (a AuthConfig) GetContextKey() string {
	return a.ContextKey
}

func (a AuthConfig) GetTokenExpiration() int {
	return a.TokenExpiration
}

func (a AuthConfig) GetAuthScheme() string {
	return a.AuthScheme
}

func (a AuthConfig) GetIssuer() string {
	return a.Issuer
}

func (a AuthConfig) GetAudience() []string {
	return a.Audience
}
