// Package config loads fintrack settings from defaults, an optional YAML file
// and FINTRACK_ prefixed environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FINTRACK_SERVER_PORT.
const EnvPrefix = "FINTRACK"

// Config is the full settings tree shared by the server and the CLI.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	Social   SocialConfig   `mapstructure:"social"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig points at the token revocation store. An empty Addr keeps
// revocations in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EventsConfig struct {
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type SocialConfig struct {
	StateKey    string        `mapstructure:"state_key"`
	StateTTL    time.Duration `mapstructure:"state_ttl"`
	AllowSignup bool          `mapstructure:"allow_signup"`
	Google      OAuthClient   `mapstructure:"google"`
}

// OAuthClient holds one provider's client registration.
type OAuthClient struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// Enabled reports whether the client is registered.
func (o OAuthClient) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

type ClientConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	SessionFile string        `mapstructure:"session_file"`
	Locale      string        `mapstructure:"locale"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.dsn", "file:fintrack.db?cache=shared")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.context_key", "user")
	v.SetDefault("auth.token_expiration", 24)
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.issuer", "fintrack")
	v.SetDefault("auth.audience", []string{"fintrack"})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.drop_if_full", false)

	v.SetDefault("social.state_ttl", "10m")
	v.SetDefault("social.allow_signup", true)
	v.SetDefault("social.google.scopes", []string{"openid", "email", "profile"})

	v.SetDefault("client.base_url", "http://127.0.0.1:8080")
	v.SetDefault("client.session_file", defaultSessionFile())
	v.SetDefault("client.locale", "en")
	v.SetDefault("client.timeout", "15s")
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".fintrack-session.yml"
	}
	return filepath.Join(dir, "fintrack", "session.yml")
}

// New returns a viper instance with defaults and environment binding. When
// file is empty, FINTRACK_CONFIG_FILE is consulted, then .fintrack.yml in
// the working directory.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	switch {
	case file != "":
		v.SetConfigFile(file)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".fintrack")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes it. A missing file
// is not an error when it was not named explicitly.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the sections shared by every binary.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Log),
		validation.Field(&c.Events),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func (e EventsConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.BufferSize, validation.Min(1)),
	)
}

// ValidateServer checks the settings only the server needs.
func (c Config) ValidateServer() error {
	if len(c.Auth.SigningKey) < 32 {
		return fmt.Errorf("auth.signing_key must be at least 32 bytes")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}
