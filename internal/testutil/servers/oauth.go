// Package servers provides a configurable mock OAuth2 provider for tests.
package servers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lukaszraczylo/authflow/internal/providers"
)

// OAuthServerConfig configures the mock provider behavior
type OAuthServerConfig struct {
	// Code returned by /authorize
	Code string
	// AccessToken issued by /token
	AccessToken string
	// FragmentResponse returns code and state after '#' instead of in the query
	FragmentResponse bool

	// Token endpoint behavior
	TokenResponse map[string]interface{}
	TokenError    *OAuthError
	TokenStatus   int
	TokenDelay    time.Duration
	// RequireSecret rejects exchanges without the client secret unless a
	// code_verifier is sent
	ClientSecret string

	// Userinfo behavior
	UserinfoResponse map[string]interface{}
	UserinfoError    *OAuthError
}

// OAuthError represents an OAuth error response
type OAuthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// OAuthServer is a mock OAuth2 provider with /authorize, /token and /userinfo.
// It enforces PKCE when the authorization request carried a challenge.
type OAuthServer struct {
	*httptest.Server
	Config *OAuthServerConfig

	tokenRequests    int32
	userinfoRequests int32

	mu         sync.Mutex
	challenges map[string]string
	validToken map[string]bool
	tokenForms []url.Values
	authorize  []url.Values
}

// NewOAuthServer creates and starts a mock provider
func NewOAuthServer(config *OAuthServerConfig) *OAuthServer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Code == "" {
		config.Code = "test-auth-code"
	}
	if config.AccessToken == "" {
		config.AccessToken = "mock-access-token"
	}

	s := &OAuthServer{
		Config:     config,
		challenges: make(map[string]string),
		validToken: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", s.handleAuthorize)
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/userinfo", s.handleUserinfo)
	s.Server = httptest.NewServer(mux)
	return s
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *OAuthServerConfig {
	return &OAuthServerConfig{
		Code:        "test-auth-code",
		AccessToken: "mock-access-token",
	}
}

// Provider returns a provider record pointing at this server.
func (s *OAuthServer) Provider(name string, opts providers.Options) *providers.Provider {
	if opts.ClientID == "" {
		opts.ClientID = "test-client"
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = []string{"email", "profile"}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = s.Client()
	}
	return providers.Generic(name, providers.Endpoints{
		AuthURL:     s.URL + "/authorize",
		TokenURL:    s.URL + "/token",
		UserInfoURL: s.URL + "/userinfo",
	}, opts)
}

// TokenRequests returns the number of token endpoint calls
func (s *OAuthServer) TokenRequests() int {
	return int(atomic.LoadInt32(&s.tokenRequests))
}

// UserinfoRequests returns the number of userinfo calls
func (s *OAuthServer) UserinfoRequests() int {
	return int(atomic.LoadInt32(&s.userinfoRequests))
}

// TokenForms returns the form bodies posted to /token
func (s *OAuthServer) TokenForms() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.tokenForms...)
}

// AuthorizeRequests returns the query parameters received by /authorize
func (s *OAuthServer) AuthorizeRequests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.authorize...)
}

// RevokeToken makes the userinfo endpoint reject token, simulating expiry
func (s *OAuthServer) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.validToken, token)
}

// IssueToken makes the userinfo endpoint accept token without an exchange
func (s *OAuthServer) IssueToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validToken[token] = true
}

// ExpectChallenge registers a PKCE challenge for a code without going
// through /authorize, for flows where the test persists state directly
func (s *OAuthServer) ExpectChallenge(code, challenge string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[code] = challenge
}

// CallbackURL builds what the provider would redirect back to
func (s *OAuthServer) CallbackURL(redirectURI, state string) string {
	params := url.Values{"code": {s.Config.Code}, "state": {state}}
	if s.Config.FragmentResponse {
		return redirectURI + "#" + params.Encode()
	}
	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	return redirectURI + sep + params.Encode()
}

func (s *OAuthServer) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	s.authorize = append(s.authorize, q)
	if challenge := q.Get("code_challenge"); challenge != "" {
		s.challenges[s.Config.Code] = challenge
	}
	s.mu.Unlock()

	http.Redirect(w, r, s.CallbackURL(q.Get("redirect_uri"), q.Get("state")), http.StatusFound)
}

func (s *OAuthServer) handleToken(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.tokenRequests, 1)

	if s.Config.TokenDelay > 0 {
		time.Sleep(s.Config.TokenDelay)
	}

	_ = r.ParseForm() // #nosec G104
	s.mu.Lock()
	s.tokenForms = append(s.tokenForms, r.PostForm)
	challenge, hasChallenge := s.challenges[r.PostForm.Get("code")]
	s.mu.Unlock()

	if s.Config.TokenError != nil {
		status := s.Config.TokenStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, s.Config.TokenError)
		return
	}

	if r.PostForm.Get("code") != s.Config.Code {
		writeJSON(w, http.StatusBadRequest, OAuthError{Error: "invalid_grant", Description: "unknown code"})
		return
	}

	verifier := r.PostForm.Get("code_verifier")
	if hasChallenge && s256(verifier) != challenge {
		writeJSON(w, http.StatusBadRequest, OAuthError{Error: "invalid_grant", Description: "PKCE verification failed"})
		return
	}
	if verifier == "" && s.Config.ClientSecret != "" && r.PostForm.Get("client_secret") != s.Config.ClientSecret {
		writeJSON(w, http.StatusUnauthorized, OAuthError{Error: "invalid_client"})
		return
	}

	response := s.Config.TokenResponse
	if response == nil {
		response = map[string]interface{}{
			"access_token": s.Config.AccessToken,
			"token_type":   "bearer",
			"scope":        "email profile",
		}
	}
	if token, ok := response["access_token"].(string); ok {
		s.mu.Lock()
		s.validToken[token] = true
		s.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *OAuthServer) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.userinfoRequests, 1)

	if s.Config.UserinfoError != nil {
		writeJSON(w, http.StatusUnauthorized, s.Config.UserinfoError)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	valid := s.validToken[token]
	s.mu.Unlock()
	if !valid {
		writeJSON(w, http.StatusUnauthorized, OAuthError{Error: "invalid_token", Description: "token expired"})
		return
	}

	response := s.Config.UserinfoResponse
	if response == nil {
		response = map[string]interface{}{
			"sub":   "test-subject",
			"email": "user@example.com",
			"name":  "Test User",
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) // #nosec G104 - test server
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
