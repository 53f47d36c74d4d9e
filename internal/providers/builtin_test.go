package providers

import (
	"net/url"
	"testing"
)

// TestBuiltinProviders tests the static configuration of the bundled providers
func TestBuiltinProviders(t *testing.T) {
	opts := Options{ClientID: "id", ClientSecret: "secret"}

	tests := []struct {
		name        string
		provider    *Provider
		wantName    string
		authURL     string
		tokenURL    string
		userInfoURL string
		scope       string
		accessType  string
	}{
		{
			name:        "github",
			provider:    GitHub(opts),
			wantName:    "github",
			authURL:     "https://github.com/login/oauth/authorize",
			tokenURL:    "https://github.com/login/oauth/access_token",
			userInfoURL: GitHubUserInfoURL,
			scope:       "read:user user:email",
		},
		{
			name:        "google",
			provider:    Google(opts),
			wantName:    "google",
			authURL:     "https://accounts.google.com/o/oauth2/auth",
			tokenURL:    "https://oauth2.googleapis.com/token",
			userInfoURL: GoogleUserInfoURL,
			scope:       "https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/userinfo.profile",
			accessType:  AccessTypeOnline,
		},
		{
			name:        "gitlab",
			provider:    GitLab(opts),
			wantName:    "gitlab",
			authURL:     "https://gitlab.com/oauth/authorize",
			tokenURL:    "https://gitlab.com/oauth/token",
			userInfoURL: GitLabUserInfoURL,
			scope:       "read_user",
		},
		{
			name:        "auth0 bare domain",
			provider:    Auth0("tenant.eu.auth0.com", Options{ClientID: "id", AccessType: AccessTypeOffline}),
			wantName:    "auth0",
			authURL:     "https://tenant.eu.auth0.com/authorize",
			tokenURL:    "https://tenant.eu.auth0.com/oauth/token",
			userInfoURL: "https://tenant.eu.auth0.com/userinfo",
			scope:       "openid email profile",
		},
		{
			name:        "auth0 full url",
			provider:    Auth0("https://tenant.auth0.com/", opts),
			wantName:    "auth0",
			authURL:     "https://tenant.auth0.com/authorize",
			tokenURL:    "https://tenant.auth0.com/oauth/token",
			userInfoURL: "https://tenant.auth0.com/userinfo",
			scope:       "openid email profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.provider
			if p.Name != tt.wantName {
				t.Errorf("Expected name %q, got %q", tt.wantName, p.Name)
			}
			if p.AuthURL != tt.authURL {
				t.Errorf("Expected auth URL %q, got %q", tt.authURL, p.AuthURL)
			}
			if p.TokenURL != tt.tokenURL {
				t.Errorf("Expected token URL %q, got %q", tt.tokenURL, p.TokenURL)
			}
			if p.UserInfoURL != tt.userInfoURL {
				t.Errorf("Expected user info URL %q, got %q", tt.userInfoURL, p.UserInfoURL)
			}
			if p.Scope() != tt.scope {
				t.Errorf("Expected scope %q, got %q", tt.scope, p.Scope())
			}
			if p.AccessType != tt.accessType {
				t.Errorf("Expected access type %q, got %q", tt.accessType, p.AccessType)
			}
			if p.State != tt.wantName {
				t.Errorf("Expected default state %q, got %q", tt.wantName, p.State)
			}
			if err := p.Validate(); err != nil {
				t.Errorf("Expected built-in provider to validate, got %v", err)
			}
		})
	}
}

// TestGoogle_AccessTypeInURL tests that Google sends access_type by default
func TestGoogle_AccessTypeInURL(t *testing.T) {
	p := Google(Options{ClientID: "id"})
	raw, err := p.Authorize(AuthorizationRequest{
		RedirectURI:  "https://app.example.com/cb",
		ResponseType: ResponseTypeCode,
		Scope:        p.Scope(),
		State:        p.State,
		AccessType:   p.AccessType,
	})
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	u, _ := url.Parse(raw)
	if u.Query().Get("access_type") != "online" {
		t.Errorf("Expected access_type=online, got %s", raw)
	}
}

// TestGitHub_CustomOptions tests that caller options override defaults
func TestGitHub_CustomOptions(t *testing.T) {
	p := GitHub(Options{
		ClientID:           "id",
		Scopes:             []string{"email", "profile"},
		State:              "Github",
		RequestHandlerPath: "/login/github",
	})

	if p.Scope() != "email profile" {
		t.Errorf("Unexpected scope %q", p.Scope())
	}
	if p.State != "Github" {
		t.Errorf("Unexpected state %q", p.State)
	}
	if p.RequestHandlerPath != "/login/github" {
		t.Errorf("Unexpected handler path %q", p.RequestHandlerPath)
	}
	if p.CallbackPath() != "/api/auth/github/callback" {
		t.Errorf("Unexpected callback path %q", p.CallbackPath())
	}
}

// TestGeneric_NoDefaultScopes tests that generic providers need explicit scopes
func TestGeneric_NoDefaultScopes(t *testing.T) {
	p := Generic("corp", Endpoints{AuthURL: "https://sso.corp/authorize", TokenURL: "https://sso.corp/token"}, Options{ClientID: "id"})
	if len(p.Scopes) != 0 {
		t.Errorf("Expected no scopes, got %v", p.Scopes)
	}
	if err := p.Validate(); err == nil {
		t.Error("Expected validation to fail without scopes")
	}
}
