package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewWithPreset(t *testing.T) {
	testCases := []struct {
		name       string
		clientType ClientType
		shouldFail bool
	}{
		{"token", ClientTypeToken, false},
		{"userinfo", ClientTypeUserInfo, false},
		{"unknown", ClientType("bogus"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewWithPreset(tc.clientType)
			if tc.shouldFail {
				if err == nil {
					t.Fatal("Expected error for unknown client type")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to create client: %v", err)
			}
			if client.Timeout != PresetConfigs[tc.clientType].Timeout {
				t.Errorf("Expected timeout %v, got %v", PresetConfigs[tc.clientType].Timeout, client.Timeout)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Timeout: time.Second}, false},
		{"negative timeout", Config{Timeout: -1}, true},
		{"timeout too long", Config{Timeout: 10 * time.Minute}, true},
		{"negative redirects", Config{MaxRedirects: -1}, true},
		{"negative pool", Config{MaxIdleConns: -1}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(tc.config)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestTokenClientDoesNotFollowRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirector.Close()

	client, err := NewWithPreset(ClientTypeToken)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Get(redirector.URL)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("Expected redirect response to be returned as-is, got %d", resp.StatusCode)
	}
}
