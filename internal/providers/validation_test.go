package providers

import (
	"testing"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
)

// TestProvider_Validate tests provider validation rules
func TestProvider_Validate(t *testing.T) {
	valid := func() *Provider {
		return &Provider{
			Name:               "corp",
			AuthURL:            "https://sso.corp.example/authorize",
			TokenURL:           "https://sso.corp.example/token",
			ClientID:           "id",
			Scopes:             []string{"openid"},
			State:              "corp",
			RequestHandlerPath: "/api/auth/corp/authorize",
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *Provider)
		wantErr bool
	}{
		{"valid", func(p *Provider) {}, false},
		{"valid with user info", func(p *Provider) { p.UserInfoURL = "https://sso.corp.example/me" }, false},
		{"empty name", func(p *Provider) { p.Name = " " }, true},
		{"missing scope", func(p *Provider) { p.Scopes = nil }, true},
		{"missing state", func(p *Provider) { p.State = "" }, true},
		{"missing handler path", func(p *Provider) { p.RequestHandlerPath = "" }, true},
		{"relative handler path", func(p *Provider) { p.RequestHandlerPath = "api/auth" }, true},
		{"missing client id", func(p *Provider) { p.ClientID = "" }, true},
		{"missing auth URL", func(p *Provider) { p.AuthURL = "" }, true},
		{"ftp token URL", func(p *Provider) { p.TokenURL = "ftp://sso.corp.example/token" }, true},
		{"token URL without host", func(p *Provider) { p.TokenURL = "https:///token" }, true},
		{"bad user info URL", func(p *Provider) { p.UserInfoURL = "not a url" }, true},
		{"unknown access type", func(p *Provider) { p.AccessType = "forever" }, true},
		{"offline access type", func(p *Provider) { p.AccessType = AccessTypeOffline }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()

			if tt.wantErr {
				if !autherrors.HasCode(err, autherrors.ErrCodeInvalidProviderConfig) {
					t.Errorf("Expected INVALID_PROVIDER_CONFIG, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestProvider_ValidateNil(t *testing.T) {
	var p *Provider
	if err := p.Validate(); err == nil {
		t.Error("Expected error for nil provider")
	}
}
