package config

import (
	"time"
)

// Default creates a configuration with sensible defaults. It does not
// validate: the token secret and providers still have to be supplied.
func Default() *Config {
	return &Config{
		BaseURL:            "http://localhost:8080",
		SuccessRedirectURL: "/",
		ErrorRedirectURL:   "/login",
		PKCE:               true,
		StateMode:          StateModeNonce,
		Token:              DefaultTokenConfig(),
		Cookie:             DefaultCookieConfig(),
		Session:            DefaultSessionConfig(),
		Redis:              DefaultRedisConfig(),
		Logging:            DefaultLoggingConfig(),
		RateLimit:          DefaultRateLimitConfig(),
		Security:           DefaultSecurityConfig(),
		Server:             DefaultServerConfig(),
	}
}

// DefaultTokenConfig returns default token configuration
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// DefaultCookieConfig returns default cookie configuration
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Secure: true,
	}
}

// DefaultSessionConfig returns default session configuration
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Store:  SessionStoreCookie,
		Name:   "_authflow_session",
		MaxAge: 10 * time.Minute,
	}
}

// DefaultLoggingConfig returns default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// DefaultSecurityConfig returns default security configuration
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge: 365 * 24 * time.Hour,
	}
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		Metrics:         true,
		ShutdownTimeout: 10 * time.Second,
	}
}
