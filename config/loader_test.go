package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
base_url: https://auth.example.com
success_redirect_url: https://app.example.com/
error_redirect_url: https://app.example.com/login
state_mode: static
token:
  secret: 0123456789abcdef0123456789abcdef
  access_ttl: 10m
  refresh_ttl: 24h
session:
  store: memory
providers:
  - kind: github
    client_id: from-file
    client_secret: file-secret
  - kind: auth0
    domain: https://tenant.eu.auth0.com
    client_id: auth0-client
logging:
  level: debug
rate_limit:
  enabled: true
  requests_per_second: 5
  burst: 5
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.Equal(t, DefaultEnvPrefix, loader.envPrefix)
	assert.Contains(t, loader.configPaths, "authflow.yaml")
	assert.Contains(t, loader.configPaths, "/etc/authflow/config.yaml")
	assert.Equal(t, []string{".env"}, loader.dotenvFiles)
}

func TestLoader_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "authflow.yaml", sampleYAML)

	cfg, err := NewLoader().WithPaths(filepath.Join(dir, "missing.yaml"), path).WithDotenv().Load()
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com", cfg.BaseURL)
	assert.Equal(t, StateModeStatic, cfg.StateMode)
	assert.Equal(t, 10*time.Minute, cfg.Token.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Token.RefreshTTL)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "from-file", cfg.Providers[0].ClientID)
	assert.Equal(t, "https://tenant.eu.auth0.com", cfg.Providers[1].Domain)

	// Values absent from the file keep their defaults.
	assert.True(t, cfg.PKCE)
	assert.Equal(t, DefaultServerConfig(), cfg.Server)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yml", sampleYAML)

	t.Setenv("AUTHFLOW_CONFIG_FILE", path)
	t.Setenv("AUTHFLOW_BASE_URL", "https://override.example.com")
	t.Setenv("AUTHFLOW_PKCE", "false")
	t.Setenv("AUTHFLOW_TOKEN_ACCESS_TTL", "5m")
	t.Setenv("AUTHFLOW_REDIS_CLUSTER_ADDRS", "a:1, b:2")
	t.Setenv("AUTHFLOW_RATELIMIT_BURST", "7")
	t.Setenv("AUTHFLOW_PROVIDER_GITHUB_CLIENT_ID", "from-env")
	t.Setenv("AUTHFLOW_PROVIDER_GITHUB_SCOPES", "read:user,repo")
	t.Setenv("AUTHFLOW_SECURITY_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:*")

	cfg, err := NewLoader().WithPaths().WithDotenv().Load()
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", cfg.BaseURL)
	assert.False(t, cfg.PKCE)
	assert.Equal(t, 5*time.Minute, cfg.Token.AccessTTL)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Redis.ClusterAddrs)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.Equal(t, "from-env", cfg.Providers[0].ClientID)
	assert.Equal(t, "file-secret", cfg.Providers[0].ClientSecret)
	assert.Equal(t, []string{"read:user", "repo"}, cfg.Providers[0].Scopes)
	assert.Equal(t, "auth0-client", cfg.Providers[1].ClientID)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:*"}, cfg.Security.AllowedOrigins)
}

func TestLoader_Dotenv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "authflow.yaml", sampleYAML)
	dotenv := writeFile(t, dir, ".env", "AUTHFLOW_SUCCESS_REDIRECT_URL=https://dotenv.example.com/\n")

	t.Setenv("AUTHFLOW_SUCCESS_REDIRECT_URL", "")
	require.NoError(t, os.Unsetenv("AUTHFLOW_SUCCESS_REDIRECT_URL"))

	cfg, err := NewLoader().WithPaths(path).WithDotenv(dotenv, filepath.Join(dir, "absent.env")).Load()
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com/", cfg.SuccessRedirectURL)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		setup func(t *testing.T) *Loader
	}{
		{
			name: "invalid yaml",
			setup: func(t *testing.T) *Loader {
				return NewLoader().WithPaths(writeFile(t, dir, "broken.yaml", "providers: [\n")).WithDotenv()
			},
		},
		{
			name: "unsupported extension",
			setup: func(t *testing.T) *Loader {
				return NewLoader().WithPaths(writeFile(t, dir, "authflow.toml", "x = 1")).WithDotenv()
			},
		},
		{
			name: "config file from env does not exist",
			setup: func(t *testing.T) *Loader {
				t.Setenv("AUTHFLOW_CONFIG_FILE", filepath.Join(dir, "nope.yaml"))
				return NewLoader().WithDotenv()
			},
		},
		{
			name: "invalid env value",
			setup: func(t *testing.T) *Loader {
				t.Setenv("AUTHFLOW_TOKEN_ACCESS_TTL", "soon")
				return NewLoader().WithPaths(writeFile(t, dir, "ok.yaml", sampleYAML)).WithDotenv()
			},
		},
		{
			name: "no providers",
			setup: func(t *testing.T) *Loader {
				return NewLoader().WithPaths().WithDotenv()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.setup(t).Load()
			assert.Error(t, err)
		})
	}
}
