// Package session provides the key-value persistence used by the login flow.
// All resumption state lives behind the Store interface so that a flow started
// in one process can be finished in another.
package session

import (
	"context"
	"fmt"
	"net/http"
)

// Keys under which the session record is persisted.
const (
	KeyCodeVerifier = "pkce_code_verifier"
	KeyCode         = "code"
	KeyState        = "state"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyProvider     = "provider"
	KeyRedirectURI  = "redirect_uri"
)

// Keys lists every persisted key. Clear removes all of them.
var Keys = []string{
	KeyCodeVerifier,
	KeyCode,
	KeyState,
	KeyAccessToken,
	KeyRefreshToken,
	KeyProvider,
	KeyRedirectURI,
}

// Store is a string key-value store. A missing key is not an error: Get
// reports it through the boolean.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Committer is implemented by stores that buffer writes, such as the cookie
// store, which must emit its Set-Cookie header once per response.
type Committer interface {
	Commit(ctx context.Context) error
}

// Clearer is implemented by stores that can drop every key in one
// operation. Clear prefers it so that a failure never leaves half a record.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Opener binds a Store to one HTTP exchange.
type Opener interface {
	Open(w http.ResponseWriter, r *http.Request) (Store, error)
}

// Record is the persisted state of one login flow.
type Record struct {
	CodeVerifier string
	Code         string
	State        string
	AccessToken  string
	RefreshToken string
	Provider     string
	// RedirectURI is the redirect_uri sent with the authorization request.
	// The exchange must repeat it verbatim.
	RedirectURI string
}

// HasPendingExchange reports whether the record alone is enough to finish
// the flow: code and state are present, and so is the verifier when
// requireVerifier is set.
func (r *Record) HasPendingExchange(requireVerifier bool) bool {
	if r.Code == "" || r.State == "" {
		return false
	}
	return r.CodeVerifier != "" || !requireVerifier
}

// Empty reports whether nothing is persisted.
func (r *Record) Empty() bool {
	return *r == Record{}
}

// Load reconstructs the record from the store.
func Load(ctx context.Context, store Store) (*Record, error) {
	rec := &Record{}
	fields := []struct {
		key string
		dst *string
	}{
		{KeyCodeVerifier, &rec.CodeVerifier},
		{KeyCode, &rec.Code},
		{KeyState, &rec.State},
		{KeyAccessToken, &rec.AccessToken},
		{KeyRefreshToken, &rec.RefreshToken},
		{KeyProvider, &rec.Provider},
		{KeyRedirectURI, &rec.RedirectURI},
	}

	for _, f := range fields {
		value, ok, err := store.Get(ctx, f.key)
		if err != nil {
			return nil, fmt.Errorf("failed to read session key %s: %w", f.key, err)
		}
		if ok {
			*f.dst = value
		}
	}
	return rec, nil
}

// SetAll writes each non-empty value. Empty values are removed so that absent
// fields never persist as empty strings.
func SetAll(ctx context.Context, store Store, values map[string]string) error {
	for key, value := range values {
		var err error
		if value == "" {
			err = store.Remove(ctx, key)
		} else {
			err = store.Set(ctx, key, value)
		}
		if err != nil {
			return fmt.Errorf("failed to write session key %s: %w", key, err)
		}
	}
	return nil
}

// Clear removes every session key. It is idempotent.
func Clear(ctx context.Context, store Store) error {
	if c, ok := store.(Clearer); ok {
		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		return nil
	}

	var firstErr error
	for _, key := range Keys {
		if err := store.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove session key %s: %w", key, err)
		}
	}
	return firstErr
}

// Commit flushes store if it buffers writes.
func Commit(ctx context.Context, store Store) error {
	if c, ok := store.(Committer); ok {
		return c.Commit(ctx)
	}
	return nil
}
