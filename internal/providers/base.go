package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
	"github.com/lukaszraczylo/authflow/internal/httpclient"
)

// maxResponseBytes bounds what is read from provider responses.
const maxResponseBytes = 1 << 20

var (
	sharedClientsMu sync.Mutex
	sharedClients   = make(map[httpclient.ClientType]*http.Client)
)

// sharedClient returns the process-wide client for a preset.
func sharedClient(clientType httpclient.ClientType) *http.Client {
	sharedClientsMu.Lock()
	defer sharedClientsMu.Unlock()

	if c, ok := sharedClients[clientType]; ok {
		return c
	}
	c, err := httpclient.NewWithPreset(clientType)
	if err != nil {
		c = &http.Client{}
	}
	sharedClients[clientType] = c
	return c
}

// DefaultRequestHandlerPath returns /api/auth/{lower(name)}/authorize.
func DefaultRequestHandlerPath(name string) string {
	return "/api/auth/" + strings.ToLower(name) + "/authorize"
}

// CallbackPath returns the server callback route for the provider.
func (p *Provider) CallbackPath() string {
	return "/api/auth/" + strings.ToLower(p.Name) + "/callback"
}

// Key returns the registry key for the provider.
func (p *Provider) Key() string {
	return strings.ToLower(p.Name)
}

// Scope returns the space separated scope string sent to the provider.
func (p *Provider) Scope() string {
	return strings.Join(p.Scopes, " ")
}

// Normalize fills in deterministic defaults. It is safe to call repeatedly.
func (p *Provider) Normalize() *Provider {
	if p.RequestHandlerPath == "" && p.Name != "" {
		p.RequestHandlerPath = DefaultRequestHandlerPath(p.Name)
	}
	if p.State == "" {
		p.State = p.Name
	}
	p.Scopes = normalizeScopes(p.Scopes)
	if p.SubjectField == "" {
		p.SubjectField = "sub"
	}
	if p.NameField == "" {
		p.NameField = "name"
	}
	if p.EmailField == "" {
		p.EmailField = "email"
	}
	if p.URLBuilder == nil {
		p.URLBuilder = DefaultURLBuilder
	}
	if p.TokenExchanger == nil {
		p.TokenExchanger = DefaultTokenExchanger
	}
	if p.UserInfoFetcher == nil {
		p.UserInfoFetcher = DefaultUserInfoFetcher
	}
	return p
}

// Authorize builds the authorization URL for req.
func (p *Provider) Authorize(req AuthorizationRequest) (string, error) {
	builder := p.URLBuilder
	if builder == nil {
		builder = DefaultURLBuilder
	}
	return builder(p, req)
}

// ExchangeCode exchanges an authorization code for tokens. When codeVerifier
// is set the PKCE form is used and the client secret is not sent.
func (p *Provider) ExchangeCode(ctx context.Context, code, state, redirectURI, codeVerifier string) (*TokenResponse, error) {
	exchanger := p.TokenExchanger
	if exchanger == nil {
		exchanger = DefaultTokenExchanger
	}
	return exchanger(ctx, p, ExchangeRequest{
		Code:         code,
		State:        state,
		RedirectURI:  redirectURI,
		CodeVerifier: codeVerifier,
	})
}

// FetchUserInfo retrieves the user profile for accessToken.
func (p *Provider) FetchUserInfo(ctx context.Context, accessToken string) (*UserProfile, error) {
	fetcher := p.UserInfoFetcher
	if fetcher == nil {
		fetcher = DefaultUserInfoFetcher
	}
	return fetcher(ctx, p, accessToken)
}

// client returns the configured client, or the shared preset for the
// endpoint kind. Token endpoints get a client that never follows redirects.
func (p *Provider) client(clientType httpclient.ClientType) *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return sharedClient(clientType)
}

// DefaultURLBuilder appends the required parameters in protocol order and
// the optional ones only when they are set. Absent optional parameters are
// omitted, never sent empty.
func DefaultURLBuilder(p *Provider, req AuthorizationRequest) (string, error) {
	base, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", autherrors.NewInvalidAuthorizationURL(p.Name, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", autherrors.NewInvalidAuthorizationURL(p.Name, fmt.Errorf("auth URL %q must be absolute", p.AuthURL))
	}
	if err := req.Validate(); err != nil {
		return "", autherrors.NewInvalidAuthorizationURL(p.Name, err)
	}

	var q queryBuilder
	q.add("client_id", p.ClientID)
	q.add("redirect_uri", req.RedirectURI)
	q.add("response_type", req.ResponseType)
	q.add("scope", req.Scope)
	q.add("state", req.State)
	q.addOptional("access_type", req.AccessType)
	q.addOptional("code_challenge_method", req.CodeChallengeMethod)
	q.addOptional("code_challenge", req.CodeChallenge)

	if base.RawQuery != "" {
		base.RawQuery += "&" + q.String()
	} else {
		base.RawQuery = q.String()
	}
	return base.String(), nil
}

// DefaultTokenExchanger posts a form-encoded authorization_code grant.
func DefaultTokenExchanger(ctx context.Context, p *Provider, req ExchangeRequest) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {req.Code},
		"client_id":    {p.ClientID},
		"redirect_uri": {req.RedirectURI},
	}
	if req.CodeVerifier != "" {
		data.Set("code_verifier", req.CodeVerifier)
	} else if p.ClientSecret != "" {
		data.Set("client_secret", p.ClientSecret)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, autherrors.NewTokenExchangeFailed(p.Name, fmt.Errorf("failed to create token request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client(httpclient.ClientTypeToken).Do(httpReq)
	if err != nil {
		return nil, autherrors.NewTokenExchangeFailed(p.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, autherrors.NewTokenExchangeFailed(p.Name, fmt.Errorf("failed to read token response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, autherrors.NewTokenExchangeFailed(p.Name, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, truncate(body)))
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, autherrors.NewTokenExchangeFailed(p.Name, fmt.Errorf("failed to decode token response: %w", err))
	}
	if tokenResponse.Error != "" {
		return nil, autherrors.NewTokenExchangeFailed(p.Name, fmt.Errorf("%s: %s", tokenResponse.Error, tokenResponse.ErrorDescription))
	}
	if tokenResponse.AccessToken == "" {
		return nil, autherrors.NewTokenExchangeFailed(p.Name, fmt.Errorf("token response has no access_token"))
	}

	return &tokenResponse, nil
}

// DefaultUserInfoFetcher calls UserInfoURL with a bearer token.
func DefaultUserInfoFetcher(ctx context.Context, p *Provider, accessToken string) (*UserProfile, error) {
	if p.UserInfoURL == "" {
		return nil, autherrors.NewUserInfoFailed(p.Name, fmt.Errorf("no user info URL configured"))
	}
	if accessToken == "" {
		return nil, autherrors.NewUserInfoFailed(p.Name, fmt.Errorf("empty access token"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, autherrors.NewUserInfoFailed(p.Name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client(httpclient.ClientTypeUserInfo).Do(httpReq)
	if err != nil {
		return nil, autherrors.NewUserInfoFailed(p.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, autherrors.NewUserInfoFailed(p.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, autherrors.NewUserInfoFailed(p.Name, fmt.Errorf("user info endpoint returned status %d: %s", resp.StatusCode, truncate(body)))
	}

	profile, err := p.ParseProfile(body)
	if err != nil {
		return nil, autherrors.NewUserInfoFailed(p.Name, err)
	}
	return profile, nil
}

// ParseProfile decodes a user-info document using the provider's field paths.
func (p *Provider) ParseProfile(body []byte) (*UserProfile, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("user info response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("user info response is not a JSON object")
	}
	claims, _ := doc.Value().(map[string]any)
	if len(claims) == 0 {
		return nil, fmt.Errorf("user info response is empty")
	}

	return &UserProfile{
		Subject: firstString(doc, p.SubjectField, "sub", "id"),
		Name:    firstString(doc, p.NameField, "name", "login", "nickname"),
		Email:   firstString(doc, p.EmailField, "email"),
		Claims:  claims,
		Raw:     json.RawMessage(body),
	}, nil
}

// Validate checks the request's required fields.
func (r AuthorizationRequest) Validate() error {
	switch r.ResponseType {
	case ResponseTypeCode, ResponseTypeToken:
	default:
		return fmt.Errorf("unsupported response_type %q", r.ResponseType)
	}
	if r.RedirectURI == "" {
		return fmt.Errorf("redirect_uri is required")
	}
	if r.Scope == "" {
		return fmt.Errorf("scope is required")
	}
	if r.State == "" {
		return fmt.Errorf("state is required")
	}
	if (r.CodeChallenge == "") != (r.CodeChallengeMethod == "") {
		return fmt.Errorf("code_challenge and code_challenge_method must be set together")
	}
	return nil
}

// queryBuilder keeps insertion order, unlike url.Values.Encode.
type queryBuilder struct {
	b strings.Builder
}

func (q *queryBuilder) add(key, value string) {
	if q.b.Len() > 0 {
		q.b.WriteByte('&')
	}
	q.b.WriteString(url.QueryEscape(key))
	q.b.WriteByte('=')
	q.b.WriteString(url.QueryEscape(value))
}

func (q *queryBuilder) addOptional(key, value string) {
	if value != "" {
		q.add(key, value)
	}
}

func (q *queryBuilder) String() string {
	return q.b.String()
}

// normalizeScopes splits whitespace separated entries and removes duplicates
// while preserving order.
func normalizeScopes(scopes []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(scopes))

	for _, entry := range scopes {
		for _, scope := range strings.Fields(entry) {
			if !seen[scope] {
				seen[scope] = true
				result = append(result, scope)
			}
		}
	}

	return result
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if v := doc.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
