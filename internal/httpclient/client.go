// Package httpclient builds the HTTP clients used to talk to OAuth providers.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Config provides configuration for creating HTTP clients
type Config struct {
	// Timeout for the entire request
	Timeout time.Duration
	// MaxRedirects allowed (0 disables following redirects)
	MaxRedirects int
	// Connection settings
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	// Connection pool settings
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	// TLS configuration
	TLSConfig *tls.Config
}

// ClientType defines the type of HTTP client for optimized behavior
type ClientType string

const (
	// ClientTypeToken is used against token endpoints
	ClientTypeToken ClientType = "token"
	// ClientTypeUserInfo is used against user-info APIs
	ClientTypeUserInfo ClientType = "userinfo"
)

// PresetConfigs provides pre-configured settings for different client types
var PresetConfigs = map[ClientType]Config{
	ClientTypeToken: {
		Timeout:               10 * time.Second,
		MaxRedirects:          0, // token endpoints must answer directly
		DialTimeout:           3 * time.Second,
		KeepAlive:             15 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
	},
	ClientTypeUserInfo: {
		Timeout:               15 * time.Second,
		MaxRedirects:          3,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
	},
}

// New creates an HTTP client with the specified configuration
func New(config Config) (*http.Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		IdleConnTimeout:       config.IdleConnTimeout,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		ForceAttemptHTTP2:     true,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	maxRedirects := config.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	return client, nil
}

// NewWithPreset creates an HTTP client using a preset configuration
func NewWithPreset(clientType ClientType) (*http.Client, error) {
	config, ok := PresetConfigs[clientType]
	if !ok {
		return nil, fmt.Errorf("unknown client type: %s", clientType)
	}
	return New(config)
}

// ValidateConfig validates HTTP client configuration parameters
func ValidateConfig(config Config) error {
	if config.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if config.Timeout > 5*time.Minute {
		return fmt.Errorf("timeout too long (max 5 minutes): %v", config.Timeout)
	}
	if config.MaxRedirects < 0 {
		return fmt.Errorf("MaxRedirects cannot be negative: %d", config.MaxRedirects)
	}
	if config.MaxIdleConns < 0 || config.MaxIdleConnsPerHost < 0 {
		return fmt.Errorf("connection pool sizes cannot be negative")
	}
	return nil
}
