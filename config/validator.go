package config

import (
	"fmt"
	"net/url"
	"strings"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
	"github.com/lukaszraczylo/authflow/internal/providers"
	"github.com/lukaszraczylo/authflow/internal/token"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("config validation error: %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("config validation error: %s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Fields lists the fields that failed validation.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, err := range e {
		fields = append(fields, err.Field)
	}
	return fields
}

// Validate checks the whole configuration. The returned error is a
// CONFIG_INVALID AuthError wrapping ValidationErrors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateURLs()...)
	errs = append(errs, c.validateToken()...)
	errs = append(errs, c.validateSession()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateRateLimit()...)
	errs = append(errs, c.validateSecurity()...)

	switch c.StateMode {
	case StateModeNonce, StateModeStatic:
	default:
		errs = append(errs, ValidationError{Field: "StateMode", Message: "must be nonce or static", Value: c.StateMode})
	}

	if len(errs) > 0 {
		return autherrors.NewConfigurationError("invalid configuration", errs)
	}
	return nil
}

func (c *Config) validateURLs() ValidationErrors {
	var errs ValidationErrors

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Field: "BaseURL", Message: "must be an absolute URL", Value: c.BaseURL})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{Field: "BaseURL", Message: "scheme must be http or https", Value: c.BaseURL})
	}

	// Redirect targets may be absolute or relative to the server.
	for field, value := range map[string]string{
		"SuccessRedirectURL": c.SuccessRedirectURL,
		"ErrorRedirectURL":   c.ErrorRedirectURL,
	} {
		if value == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required"})
			continue
		}
		if _, err := url.Parse(value); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: "invalid URL", Value: value})
		}
	}

	return errs
}

func (c *Config) validateToken() ValidationErrors {
	var errs ValidationErrors

	if len(c.Token.Secret) < token.MinSecretLength {
		errs = append(errs, ValidationError{
			Field:   "Token.Secret",
			Message: fmt.Sprintf("must be at least %d bytes", token.MinSecretLength),
		})
	}
	if c.Token.AccessTTL <= 0 {
		errs = append(errs, ValidationError{Field: "Token.AccessTTL", Message: "must be positive", Value: c.Token.AccessTTL})
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		errs = append(errs, ValidationError{
			Field:   "Token.RefreshTTL",
			Message: "must be longer than the access token TTL",
			Value:   c.Token.RefreshTTL,
		})
	}

	return errs
}

func (c *Config) validateSession() ValidationErrors {
	var errs ValidationErrors

	switch c.Session.Store {
	case SessionStoreCookie:
		if len(c.Session.HashKey) < 32 {
			errs = append(errs, ValidationError{Field: "Session.HashKey", Message: "must be at least 32 bytes for the cookie store"})
		}
		switch len(c.Session.BlockKey) {
		case 0, 16, 24, 32:
		default:
			errs = append(errs, ValidationError{Field: "Session.BlockKey", Message: "must be 16, 24 or 32 bytes"})
		}
	case SessionStoreRedis:
		if err := c.Redis.Validate(); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				errs = append(errs, *ve)
			} else {
				errs = append(errs, ValidationError{Field: "Redis", Message: err.Error()})
			}
		}
	case SessionStoreMemory:
	default:
		errs = append(errs, ValidationError{Field: "Session.Store", Message: "must be cookie, redis or memory", Value: c.Session.Store})
	}

	if c.Session.MaxAge <= 0 {
		errs = append(errs, ValidationError{Field: "Session.MaxAge", Message: "must be positive", Value: c.Session.MaxAge})
	}

	return errs
}

func (c *Config) validateProviders() ValidationErrors {
	var errs ValidationErrors

	if len(c.Providers) == 0 {
		return append(errs, ValidationError{Field: "Providers", Message: "at least one provider is required"})
	}

	seen := make(map[string]bool)
	for i, pc := range c.Providers {
		field := fmt.Sprintf("Providers[%d]", i)
		key := pc.key()
		if key == "" {
			errs = append(errs, ValidationError{Field: field, Message: "kind or name is required"})
			continue
		}
		if seen[key] {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate provider", Value: key})
			continue
		}
		seen[key] = true

		if _, err := providers.Build(pc.Definition()); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error(), Value: key})
		}
	}

	return errs
}

func (c *Config) validateLogging() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "trace", "info", "warn", "warning", "error", "none", "off":
	default:
		errs = append(errs, ValidationError{Field: "Logging.Level", Message: "unknown log level", Value: c.Logging.Level})
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "Logging", Message: "rotation settings must not be negative"})
	}

	return errs
}

func (c *Config) validateRateLimit() ValidationErrors {
	var errs ValidationErrors

	if !c.RateLimit.Enabled {
		return errs
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, ValidationError{Field: "RateLimit.RequestsPerSecond", Message: "must be positive", Value: c.RateLimit.RequestsPerSecond})
	}
	if c.RateLimit.Burst < 1 {
		errs = append(errs, ValidationError{Field: "RateLimit.Burst", Message: "must be at least 1", Value: c.RateLimit.Burst})
	}

	return errs
}

func (c *Config) validateSecurity() ValidationErrors {
	var errs ValidationErrors

	for i, origin := range c.Security.AllowedOrigins {
		field := fmt.Sprintf("Security.AllowedOrigins[%d]", i)
		if origin == "*" {
			errs = append(errs, ValidationError{Field: field, Message: "wildcard origin cannot be combined with credentials", Value: origin})
			continue
		}
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://") {
			errs = append(errs, ValidationError{Field: field, Message: "must start with http:// or https://", Value: origin})
		}
	}
	if c.Security.HSTSMaxAge < 0 {
		errs = append(errs, ValidationError{Field: "Security.HSTSMaxAge", Message: "must not be negative", Value: c.Security.HSTSMaxAge})
	}
	return errs
}
