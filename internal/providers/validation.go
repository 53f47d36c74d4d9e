package providers

import (
	"fmt"
	"net/url"
	"strings"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
)

// Validate checks that the provider can start a flow. Missing scope, state or
// request handler path, empty client id or malformed endpoints are reported as
// INVALID_PROVIDER_CONFIG.
func (p *Provider) Validate() error {
	if p == nil {
		return autherrors.NewInvalidProviderConfig("", "provider is nil")
	}
	name := p.Name
	if strings.TrimSpace(name) == "" {
		return autherrors.NewInvalidProviderConfig(name, "name cannot be empty")
	}
	if len(p.Scopes) == 0 {
		return autherrors.NewInvalidProviderConfig(name, "at least one scope must be provided")
	}
	if p.State == "" {
		return autherrors.NewInvalidProviderConfig(name, "state cannot be empty")
	}
	if p.RequestHandlerPath == "" || !strings.HasPrefix(p.RequestHandlerPath, "/") {
		return autherrors.NewInvalidProviderConfig(name, "request handler path must be an absolute path")
	}
	if p.ClientID == "" {
		return autherrors.NewInvalidProviderConfig(name, "client ID cannot be empty")
	}
	if err := validateEndpoint("auth URL", p.AuthURL); err != nil {
		return autherrors.NewInvalidProviderConfig(name, err.Error())
	}
	if err := validateEndpoint("token URL", p.TokenURL); err != nil {
		return autherrors.NewInvalidProviderConfig(name, err.Error())
	}
	if p.UserInfoURL != "" {
		if err := validateEndpoint("user info URL", p.UserInfoURL); err != nil {
			return autherrors.NewInvalidProviderConfig(name, err.Error())
		}
	}
	switch p.AccessType {
	case "", AccessTypeOnline, AccessTypeOffline:
	default:
		return autherrors.NewInvalidProviderConfig(name, fmt.Sprintf("access type %q must be online or offline", p.AccessType))
	}
	return nil
}

// validateEndpoint checks that an endpoint is an absolute http(s) URL.
func validateEndpoint(label, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", label)
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s format: %w", label, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https", label)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s must include host", label)
	}
	return nil
}
