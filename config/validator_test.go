package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	cfg := Default()
	cfg.Token.Secret = testSecret
	cfg.Session.HashKey = strings.Repeat("h", 32)
	cfg.Providers = []ProviderConfig{
		{Kind: "github", ClientID: "gh-client", ClientSecret: "gh-secret"},
		{
			Kind:        "generic",
			Name:        "corp",
			ClientID:    "corp-client",
			Scopes:      []string{"openid", "email"},
			AuthURL:     "https://sso.example.com/authorize",
			TokenURL:    "https://sso.example.com/token",
			UserInfoURL: "https://sso.example.com/userinfo",
		},
	}
	return cfg
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	assert.True(t, autherrors.HasCode(err, autherrors.ErrCodeConfigInvalid))

	authErr, ok := autherrors.AsAuthError(err)
	require.True(t, ok)
	errs, ok := authErr.Internal.(ValidationErrors)
	require.True(t, ok, "internal error should be ValidationErrors, got %T", authErr.Internal)
	return errs.Fields()
}

func TestValidate_ValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{
			name:   "short secret",
			mutate: func(c *Config) { c.Token.Secret = "short" },
			field:  "Token.Secret",
		},
		{
			name:   "refresh not longer than access",
			mutate: func(c *Config) { c.Token.RefreshTTL = c.Token.AccessTTL },
			field:  "Token.RefreshTTL",
		},
		{
			name:   "zero access ttl",
			mutate: func(c *Config) { c.Token.AccessTTL = 0 },
			field:  "Token.AccessTTL",
		},
		{
			name:   "relative base url",
			mutate: func(c *Config) { c.BaseURL = "/app" },
			field:  "BaseURL",
		},
		{
			name:   "ftp base url",
			mutate: func(c *Config) { c.BaseURL = "ftp://example.com" },
			field:  "BaseURL",
		},
		{
			name:   "missing error redirect",
			mutate: func(c *Config) { c.ErrorRedirectURL = "" },
			field:  "ErrorRedirectURL",
		},
		{
			name:   "unknown session store",
			mutate: func(c *Config) { c.Session.Store = "disk" },
			field:  "Session.Store",
		},
		{
			name:   "short cookie hash key",
			mutate: func(c *Config) { c.Session.HashKey = "abc" },
			field:  "Session.HashKey",
		},
		{
			name:   "bad block key length",
			mutate: func(c *Config) { c.Session.BlockKey = "12345" },
			field:  "Session.BlockKey",
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Session.Store = SessionStoreRedis
				c.Redis.Addr = ""
			},
			field: "Redis.Addr",
		},
		{
			name: "sentinel without master",
			mutate: func(c *Config) {
				c.Session.Store = SessionStoreRedis
				c.Redis.Mode = RedisModeSentinel
				c.Redis.SentinelAddrs = []string{"localhost:26379"}
			},
			field: "Redis.MasterName",
		},
		{
			name:   "no providers",
			mutate: func(c *Config) { c.Providers = nil },
			field:  "Providers",
		},
		{
			name:   "provider without client id",
			mutate: func(c *Config) { c.Providers[0].ClientID = "" },
			field:  "Providers[0]",
		},
		{
			name:   "duplicate provider",
			mutate: func(c *Config) { c.Providers[1] = c.Providers[0] },
			field:  "Providers[1]",
		},
		{
			name:   "provider without kind or name",
			mutate: func(c *Config) { c.Providers[1].Kind, c.Providers[1].Name = "", "" },
			field:  "Providers[1]",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			field:  "Logging.Level",
		},
		{
			name:   "zero burst",
			mutate: func(c *Config) { c.RateLimit.Burst = 0 },
			field:  "RateLimit.Burst",
		},
		{
			name:   "wildcard cors origin",
			mutate: func(c *Config) { c.Security.AllowedOrigins = []string{"https://app.example.com", "*"} },
			field:  "Security.AllowedOrigins[1]",
		},
		{
			name:   "cors origin without scheme",
			mutate: func(c *Config) { c.Security.AllowedOrigins = []string{"app.example.com"} },
			field:  "Security.AllowedOrigins[0]",
		},
		{
			name:   "unknown state mode",
			mutate: func(c *Config) { c.StateMode = "random" },
			field:  "StateMode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Contains(t, validationFields(t, cfg.Validate()), tt.field)
		})
	}
}

func TestValidate_DisabledRateLimitIgnoresValues(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: false}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MemoryStoreNeedsNoKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Session.Store = SessionStoreMemory
	cfg.Session.HashKey = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "A", Message: "bad"},
		{Field: "B", Message: "worse", Value: 3},
	}
	assert.Equal(t, "config validation error: A: bad; config validation error: B: worse (value: 3)", errs.Error())
	assert.Empty(t, ValidationErrors{}.Error())
}

func TestRedisConfig_UniversalOptions(t *testing.T) {
	tests := []struct {
		name       string
		cfg        RedisConfig
		addrs      []string
		masterName string
	}{
		{
			name:  "standalone",
			cfg:   RedisConfig{Mode: RedisModeStandalone, Addr: "redis:6379"},
			addrs: []string{"redis:6379"},
		},
		{
			name:  "cluster",
			cfg:   RedisConfig{Mode: RedisModeCluster, ClusterAddrs: []string{"a:1", "b:2"}},
			addrs: []string{"a:1", "b:2"},
		},
		{
			name:       "sentinel",
			cfg:        RedisConfig{Mode: RedisModeSentinel, MasterName: "main", SentinelAddrs: []string{"s:26379"}},
			addrs:      []string{"s:26379"},
			masterName: "main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.cfg.UniversalOptions()
			assert.Equal(t, tt.addrs, opts.Addrs)
			assert.Equal(t, tt.masterName, opts.MasterName)
			assert.Nil(t, opts.TLSConfig)
		})
	}

	withTLS := RedisConfig{Addr: "redis:6379", TLSEnabled: true, TTL: time.Minute}
	assert.NotNil(t, withTLS.UniversalOptions().TLSConfig)
	assert.NoError(t, withTLS.Validate())
}

func TestConfig_BuildProviders(t *testing.T) {
	cfg := validConfig()
	registry, err := cfg.BuildProviders()
	require.NoError(t, err)
	assert.Equal(t, []string{"github", "corp"}, registry.Names())

	corp, err := registry.Get("CORP")
	require.NoError(t, err)
	assert.Equal(t, "https://sso.example.com/token", corp.TokenURL)
	assert.Equal(t, "/api/auth/corp/authorize", corp.RequestHandlerPath)
	assert.Equal(t, "http://localhost:8080/api/auth/corp/callback", cfg.RedirectURI(corp.CallbackPath()))
}
