package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHashKey = []byte("0123456789abcdef0123456789abcdef")

func TestNewCookieManager_Keys(t *testing.T) {
	tests := []struct {
		name     string
		hashKey  []byte
		blockKey []byte
		wantErr  bool
	}{
		{"signed only", testHashKey, nil, false},
		{"signed and encrypted", testHashKey, []byte("0123456789abcdef"), false},
		{"short hash key", []byte("short"), nil, true},
		{"bad block key length", testHashKey, []byte("abc"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCookieManager(tt.hashKey, tt.blockKey, CookieOptions{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCookieStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	manager, err := NewCookieManager(testHashKey, []byte("0123456789abcdef0123456789abcdef"), CookieOptions{Secure: true})
	require.NoError(t, err)

	// First request writes the flow fields.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/github/authorize", nil)
	store, err := manager.Open(rec, req)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyState, "nonce-1"))
	require.NoError(t, store.Set(ctx, KeyCodeVerifier, "verifier-1"))
	require.NoError(t, Commit(ctx, store))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.NotContains(t, cookies[0].Value, "verifier-1")

	// Second request reads them back.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback", nil)
	req2.AddCookie(cookies[0])
	store2, err := manager.Open(rec2, req2)
	require.NoError(t, err)

	loaded, err := Load(ctx, store2)
	require.NoError(t, err)
	assert.Equal(t, "nonce-1", loaded.State)
	assert.Equal(t, "verifier-1", loaded.CodeVerifier)

	// Clearing expires the cookie.
	require.NoError(t, Clear(ctx, store2))
	require.NoError(t, Commit(ctx, store2))
	header := rec2.Header().Get("Set-Cookie")
	assert.True(t, strings.Contains(header, "Max-Age=0"), "expected expired cookie, got %q", header)
}

func TestCookieStore_NoWriteWithoutChanges(t *testing.T) {
	manager, err := NewCookieManager(testHashKey, nil, CookieOptions{Name: "flow"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	store, err := manager.Open(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.NoError(t, store.Remove(context.Background(), KeyCode))
	require.NoError(t, Commit(context.Background(), store))
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestCookieStore_TamperedCookieStartsFresh(t *testing.T) {
	manager, err := NewCookieManager(testHashKey, nil, CookieOptions{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "garbage"})

	store, err := manager.Open(httptest.NewRecorder(), req)
	require.NoError(t, err)

	_, ok, err := store.Get(context.Background(), KeyState)
	require.NoError(t, err)
	assert.False(t, ok)
}
