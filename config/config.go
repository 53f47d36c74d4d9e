// Package config holds the authflow configuration and its loading logic.
// Values come from built-in defaults, then an optional YAML file, then
// AUTHFLOW_* environment variables, in that order.
package config

import (
	"strings"
	"time"

	"github.com/lukaszraczylo/authflow/internal/logger"
	"github.com/lukaszraczylo/authflow/internal/providers"
)

// Session store backends.
const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// State modes.
const (
	StateModeNonce  = "nonce"
	StateModeStatic = "static"
)

// Config is the complete authflow configuration.
type Config struct {
	// BaseURL is the externally visible origin of the server, used to build
	// redirect_uri values (BaseURL + /api/auth/{provider}/callback).
	BaseURL string `yaml:"base_url"`
	// SuccessRedirectURL receives the browser after a successful login.
	SuccessRedirectURL string `yaml:"success_redirect_url"`
	// ErrorRedirectURL receives the browser, with ?error=, after a failed login.
	ErrorRedirectURL string `yaml:"error_redirect_url"`

	PKCE      bool   `yaml:"pkce"`
	StateMode string `yaml:"state_mode"`

	Token     TokenConfig      `yaml:"token"`
	Cookie    CookieConfig     `yaml:"cookie"`
	Session   SessionConfig    `yaml:"session"`
	Redis     RedisConfig      `yaml:"redis"`
	Providers []ProviderConfig `yaml:"providers"`
	Logging   LoggingConfig    `yaml:"logging"`
	RateLimit RateLimitConfig  `yaml:"rate_limit"`
	Security  SecurityConfig   `yaml:"security"`
	Server    ServerConfig     `yaml:"server"`
}

// TokenConfig configures the application token issuer.
type TokenConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// CookieConfig applies to the access_token and refresh_token cookies.
type CookieConfig struct {
	Domain string `yaml:"domain"`
	Secure bool   `yaml:"secure"`
}

// SessionConfig selects the store holding the in-flight login (state,
// verifier, provider) between the authorize and callback requests.
type SessionConfig struct {
	Store string `yaml:"store"`
	Name  string `yaml:"name"`
	// HashKey authenticates the cookie session, at least 32 bytes.
	HashKey string `yaml:"hash_key"`
	// BlockKey encrypts the cookie session: empty, 16, 24 or 32 bytes.
	BlockKey string        `yaml:"block_key"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// ProviderConfig declares one OAuth2 provider.
type ProviderConfig struct {
	// Kind is github, google, gitlab, auth0 or generic. Empty means Name.
	Kind               string   `yaml:"kind"`
	Name               string   `yaml:"name"`
	Domain             string   `yaml:"domain"`
	ClientID           string   `yaml:"client_id"`
	ClientSecret       string   `yaml:"client_secret"`
	Scopes             []string `yaml:"scopes"`
	State              string   `yaml:"state"`
	AccessType         string   `yaml:"access_type"`
	RequestHandlerPath string   `yaml:"request_handler_path"`
	AuthURL            string   `yaml:"auth_url"`
	TokenURL           string   `yaml:"token_url"`
	UserInfoURL        string   `yaml:"user_info_url"`
	SubjectField       string   `yaml:"subject_field"`
	NameField          string   `yaml:"name_field"`
	EmailField         string   `yaml:"email_field"`
}

// LoggingConfig configures the logger factory.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// RateLimitConfig limits requests to the authorize and callback routes.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SecurityConfig hardens the login endpoint responses.
type SecurityConfig struct {
	// AllowedOrigins may call refresh, logout and the provider listing
	// from another origin with credentials.
	AllowedOrigins []string      `yaml:"allowed_origins"`
	HSTSMaxAge     time.Duration `yaml:"hsts_max_age"`
}

// ServerConfig is used by cmd/authflow-server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Metrics         bool          `yaml:"metrics"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Definition converts the entry into a provider definition.
func (p ProviderConfig) Definition() providers.Definition {
	return providers.Definition{
		Kind:   p.Kind,
		Name:   p.Name,
		Domain: p.Domain,
		Endpoints: providers.Endpoints{
			AuthURL:     p.AuthURL,
			TokenURL:    p.TokenURL,
			UserInfoURL: p.UserInfoURL,
		},
		Options: providers.Options{
			ClientID:           p.ClientID,
			ClientSecret:       p.ClientSecret,
			Scopes:             p.Scopes,
			State:              p.State,
			AccessType:         p.AccessType,
			RequestHandlerPath: p.RequestHandlerPath,
		},
		SubjectField: p.SubjectField,
		NameField:    p.NameField,
		EmailField:   p.EmailField,
	}
}

// key is the name the provider is registered under.
func (p ProviderConfig) key() string {
	if p.Name != "" {
		return strings.ToLower(p.Name)
	}
	return strings.ToLower(p.Kind)
}

// BuildProviders builds every configured provider into a registry.
func (c *Config) BuildProviders() (*providers.Registry, error) {
	registry, err := providers.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, pc := range c.Providers {
		p, err := providers.Build(pc.Definition())
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// LoggerConfig converts the logging section for logger.NewFactory.
func (l LoggingConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      l.Level,
		FilePath:   l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
	}
}

// RedirectURI returns the callback URL registered with the provider.
func (c *Config) RedirectURI(callbackPath string) string {
	return strings.TrimRight(c.BaseURL, "/") + callbackPath
}
