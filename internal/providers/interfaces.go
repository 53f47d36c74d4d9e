// Package providers implements the OAuth2 provider capability records.
// A provider is plain configuration data plus three pluggable functions
// (URL building, code exchange, user-info fetching) selected by name from a
// Registry; there is no per-provider type hierarchy.
package providers

import (
	"context"
	"encoding/json"
	"net/http"
)

// Response types accepted by the authorization endpoint.
const (
	ResponseTypeCode  = "code"
	ResponseTypeToken = "token"
)

// Access types understood by providers that support them (Google).
const (
	AccessTypeOnline  = "online"
	AccessTypeOffline = "offline"
)

// AuthorizationRequest is the ephemeral value object used to build the
// authorization URL. It is never persisted beyond the URL it produces.
type AuthorizationRequest struct {
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	AccessType          string
	CodeChallengeMethod string
	CodeChallenge       string
}

// ExchangeRequest carries the inputs of the token endpoint call.
// CodeVerifier switches the request to the PKCE form.
type ExchangeRequest struct {
	Code         string
	State        string
	RedirectURI  string
	CodeVerifier string
}

// TokenResponse represents the response from the token endpoint
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	IDToken          string `json:"id_token,omitempty"`
	Scope            string `json:"scope,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// UserProfile is the provider's user document with the commonly used
// fields extracted according to the provider's field paths.
type UserProfile struct {
	Subject string
	Name    string
	Email   string
	Claims  map[string]any
	Raw     json.RawMessage
}

// Payload returns the default application token payload for a profile.
func (u *UserProfile) Payload(provider string) map[string]any {
	payload := map[string]any{
		"name":     u.Name,
		"email":    u.Email,
		"provider": provider,
	}
	if u.Subject != "" {
		payload["sub"] = u.Subject
	}
	return payload
}

// URLBuilderFunc builds the authorization URL for a request.
type URLBuilderFunc func(p *Provider, req AuthorizationRequest) (string, error)

// TokenExchangerFunc exchanges an authorization code at the token endpoint.
type TokenExchangerFunc func(ctx context.Context, p *Provider, req ExchangeRequest) (*TokenResponse, error)

// UserInfoFetcherFunc retrieves the user profile for an access token.
type UserInfoFetcherFunc func(ctx context.Context, p *Provider, accessToken string) (*UserProfile, error)

// Provider is the capability record for one OAuth2 provider.
type Provider struct {
	Name         string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// State is the static state value used when per-attempt nonces are disabled.
	State      string
	AccessType string
	// RequestHandlerPath is the server route that starts the flow.
	RequestHandlerPath string

	// Field paths (gjson syntax) into the user-info document.
	SubjectField string
	NameField    string
	EmailField   string

	HTTPClient *http.Client

	URLBuilder      URLBuilderFunc
	TokenExchanger  TokenExchangerFunc
	UserInfoFetcher UserInfoFetcherFunc
}

// Options are the caller-supplied parts of a built-in provider.
type Options struct {
	ClientID           string
	ClientSecret       string
	Scopes             []string
	State              string
	AccessType         string
	RequestHandlerPath string
	HTTPClient         *http.Client
}

// Endpoints overrides or supplies the provider URLs.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}
