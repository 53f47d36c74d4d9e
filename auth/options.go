package auth

import (
	"github.com/lukaszraczylo/authflow/internal/logger"
	"github.com/lukaszraczylo/authflow/internal/metrics"
	"github.com/lukaszraczylo/authflow/internal/providers"
)

// StateMode selects how the state parameter is generated.
type StateMode int

const (
	// StateNonce sends a random value per attempt and persists the provider
	// name separately.
	StateNonce StateMode = iota
	// StateStatic sends the provider's configured state, which is predictable.
	// Only use it for providers or front-ends that rely on the old behavior.
	StateStatic
)

// Option configures a Controller.
type Option func(*Controller)

// WithPKCE enables or disables PKCE. It is enabled by default.
func WithPKCE(enabled bool) Option {
	return func(c *Controller) { c.pkce = enabled }
}

// WithStateMode selects nonce or static state values.
func WithStateMode(mode StateMode) Option {
	return func(c *Controller) { c.stateMode = mode }
}

// WithRedirectURI sets the function computing the redirect_uri for a provider.
func WithRedirectURI(fn func(p *providers.Provider) string) Option {
	return func(c *Controller) { c.redirectURI = fn }
}

// WithRedirectBase sends the provider back to base + the provider's callback path.
func WithRedirectBase(base string) Option {
	return WithRedirectURI(func(p *providers.Provider) string {
		return base + p.CallbackPath()
	})
}

// WithResponseType overrides the response_type sent to the provider.
func WithResponseType(responseType string) Option {
	return func(c *Controller) { c.responseType = responseType }
}

// WithAutoCommit controls whether the controller commits buffering stores
// after each transition. HTTP handlers that write the session themselves
// turn it off.
func WithAutoCommit(enabled bool) Option {
	return func(c *Controller) { c.autoCommit = enabled }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func defaultLogger() Logger {
	return logger.GetNoOpLogger()
}
