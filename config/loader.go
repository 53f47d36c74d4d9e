package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the prefix of every environment variable read by Loader.
const DefaultEnvPrefix = "AUTHFLOW_"

// Loader handles loading configuration from various sources
type Loader struct {
	envPrefix   string
	configPaths []string
	dotenvFiles []string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix:   DefaultEnvPrefix,
		configPaths: getDefaultConfigPaths(),
		dotenvFiles: []string{".env"},
	}
}

// getDefaultConfigPaths returns default configuration file paths to check
func getDefaultConfigPaths() []string {
	return []string{
		"authflow.yaml",
		"authflow.yml",
		"config.yaml",
		"config.yml",
		"/etc/authflow/config.yaml",
	}
}

// WithPaths replaces the configuration file search paths.
func (l *Loader) WithPaths(paths ...string) *Loader {
	l.configPaths = paths
	return l
}

// WithDotenv replaces the list of .env files loaded before the environment
// is read. Missing files are ignored.
func (l *Loader) WithDotenv(files ...string) *Loader {
	l.dotenvFiles = files
	return l
}

// Load loads configuration from all available sources
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDotenv(); err != nil {
		return nil, err
	}

	// Start with defaults
	config := Default()

	if err := l.LoadFromFile(config); err != nil {
		return nil, err
	}

	if err := l.LoadFromEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadDotenv exports .env values that are not already set in the process
// environment.
func (l *Loader) loadDotenv() error {
	for _, file := range l.dotenvFiles {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFromFile decodes the first configuration file found over config.
// A missing file is not an error.
func (l *Loader) LoadFromFile(config *Config) error {
	searchPaths := l.configPaths

	// Check for config file in environment variable
	if envPath := os.Getenv(l.envPrefix + "CONFIG_FILE"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file %s: %w", envPath, err)
		}
		searchPaths = []string{envPath}
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return l.loadFile(path, config)
		}
	}

	return nil
}

// loadFile loads a specific configuration file
func (l *Loader) loadFile(path string, config *Config) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid config path: potential path traversal detected in %s", path)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("unsupported config file extension: %s", ext)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config %s: %w", cleanPath, err)
	}
	return nil
}

// envOverrides holds raw environment values. Unset variables stay nil and
// leave the file or default value alone.
type envOverrides struct {
	BaseURL            *string `env:"BASE_URL"`
	SuccessRedirectURL *string `env:"SUCCESS_REDIRECT_URL"`
	ErrorRedirectURL   *string `env:"ERROR_REDIRECT_URL"`
	PKCE               *bool   `env:"PKCE"`
	StateMode          *string `env:"STATE_MODE"`

	TokenSecret     *string        `env:"TOKEN_SECRET"`
	TokenIssuer     *string        `env:"TOKEN_ISSUER"`
	TokenAccessTTL  *time.Duration `env:"TOKEN_ACCESS_TTL"`
	TokenRefreshTTL *time.Duration `env:"TOKEN_REFRESH_TTL"`

	CookieDomain *string `env:"COOKIE_DOMAIN"`
	CookieSecure *bool   `env:"COOKIE_SECURE"`

	SessionStore    *string        `env:"SESSION_STORE"`
	SessionName     *string        `env:"SESSION_NAME"`
	SessionHashKey  *string        `env:"SESSION_HASH_KEY"`
	SessionBlockKey *string        `env:"SESSION_BLOCK_KEY"`
	SessionMaxAge   *time.Duration `env:"SESSION_MAX_AGE"`

	RedisMode          *string        `env:"REDIS_MODE"`
	RedisAddr          *string        `env:"REDIS_ADDR"`
	RedisPassword      *string        `env:"REDIS_PASSWORD"`
	RedisDB            *int           `env:"REDIS_DB"`
	RedisClusterAddrs  []string       `env:"REDIS_CLUSTER_ADDRS" envSeparator:","`
	RedisMasterName    *string        `env:"REDIS_MASTER_NAME"`
	RedisSentinelAddrs []string       `env:"REDIS_SENTINEL_ADDRS" envSeparator:","`
	RedisKeyPrefix     *string        `env:"REDIS_KEY_PREFIX"`
	RedisTTL           *time.Duration `env:"REDIS_TTL"`
	RedisTLS           *bool          `env:"REDIS_TLS_ENABLED"`

	LogLevel *string `env:"LOG_LEVEL"`
	LogFile  *string `env:"LOG_FILE"`

	RateLimitEnabled *bool    `env:"RATELIMIT_ENABLED"`
	RateLimitRPS     *float64 `env:"RATELIMIT_RPS"`
	RateLimitBurst   *int     `env:"RATELIMIT_BURST"`

	SecurityAllowedOrigins []string       `env:"SECURITY_ALLOWED_ORIGINS" envSeparator:","`
	SecurityHSTSMaxAge     *time.Duration `env:"SECURITY_HSTS_MAX_AGE"`

	ServerAddr    *string `env:"SERVER_ADDR"`
	ServerMetrics *bool   `env:"SERVER_METRICS"`
}

// providerEnv holds per-provider secrets, read with the prefix
// AUTHFLOW_PROVIDER_<NAME>_ so that they never need to live in the file.
type providerEnv struct {
	ClientID     *string  `env:"CLIENT_ID"`
	ClientSecret *string  `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

// LoadFromEnv applies environment variables over config.
func (l *Loader) LoadFromEnv(config *Config) error {
	var raw envOverrides
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: l.envPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&config.BaseURL, raw.BaseURL)
	setString(&config.SuccessRedirectURL, raw.SuccessRedirectURL)
	setString(&config.ErrorRedirectURL, raw.ErrorRedirectURL)
	setValue(&config.PKCE, raw.PKCE)
	setString(&config.StateMode, raw.StateMode)

	setString(&config.Token.Secret, raw.TokenSecret)
	setString(&config.Token.Issuer, raw.TokenIssuer)
	setValue(&config.Token.AccessTTL, raw.TokenAccessTTL)
	setValue(&config.Token.RefreshTTL, raw.TokenRefreshTTL)

	setString(&config.Cookie.Domain, raw.CookieDomain)
	setValue(&config.Cookie.Secure, raw.CookieSecure)

	setString(&config.Session.Store, raw.SessionStore)
	setString(&config.Session.Name, raw.SessionName)
	setString(&config.Session.HashKey, raw.SessionHashKey)
	setString(&config.Session.BlockKey, raw.SessionBlockKey)
	setValue(&config.Session.MaxAge, raw.SessionMaxAge)

	if raw.RedisMode != nil {
		config.Redis.Mode = RedisMode(strings.ToLower(*raw.RedisMode))
	}
	setString(&config.Redis.Addr, raw.RedisAddr)
	setString(&config.Redis.Password, raw.RedisPassword)
	setValue(&config.Redis.DB, raw.RedisDB)
	if len(raw.RedisClusterAddrs) > 0 {
		config.Redis.ClusterAddrs = trimAll(raw.RedisClusterAddrs)
	}
	setString(&config.Redis.MasterName, raw.RedisMasterName)
	if len(raw.RedisSentinelAddrs) > 0 {
		config.Redis.SentinelAddrs = trimAll(raw.RedisSentinelAddrs)
	}
	setString(&config.Redis.KeyPrefix, raw.RedisKeyPrefix)
	setValue(&config.Redis.TTL, raw.RedisTTL)
	setValue(&config.Redis.TLSEnabled, raw.RedisTLS)

	setString(&config.Logging.Level, raw.LogLevel)
	setString(&config.Logging.File, raw.LogFile)

	setValue(&config.RateLimit.Enabled, raw.RateLimitEnabled)
	setValue(&config.RateLimit.RequestsPerSecond, raw.RateLimitRPS)
	setValue(&config.RateLimit.Burst, raw.RateLimitBurst)

	if len(raw.SecurityAllowedOrigins) > 0 {
		config.Security.AllowedOrigins = trimAll(raw.SecurityAllowedOrigins)
	}
	setValue(&config.Security.HSTSMaxAge, raw.SecurityHSTSMaxAge)

	setString(&config.Server.Addr, raw.ServerAddr)
	setValue(&config.Server.Metrics, raw.ServerMetrics)

	for i := range config.Providers {
		if err := l.loadProviderEnv(&config.Providers[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadProviderEnv(p *ProviderConfig) error {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(p.key()))
	if name == "" {
		return nil
	}

	var raw providerEnv
	opts := env.Options{Prefix: l.envPrefix + "PROVIDER_" + name + "_"}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return fmt.Errorf("parse env for provider %s: %w", p.key(), err)
	}

	setString(&p.ClientID, raw.ClientID)
	setString(&p.ClientSecret, raw.ClientSecret)
	if len(raw.Scopes) > 0 {
		p.Scopes = trimAll(raw.Scopes)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
