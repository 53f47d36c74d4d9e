package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// DefaultCookieName is the name of the flow session cookie.
	DefaultCookieName = "_authflow_session"

	minHashKeyLength = 32
	flowCookieMaxAge = 10 * 60
)

// CookieOptions configures the flow session cookie.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
	// MaxAge in seconds; zero uses ten minutes, long enough for one redirect round trip.
	MaxAge int
}

// CookieManager opens cookie-backed stores for HTTP requests.
// The cookie is signed with hashKey and, when blockKey is set, encrypted.
type CookieManager struct {
	store *sessions.CookieStore
	name  string
}

// NewCookieManager creates a manager with secure cookie defaults.
func NewCookieManager(hashKey, blockKey []byte, opts CookieOptions) (*CookieManager, error) {
	if len(hashKey) < minHashKeyLength {
		return nil, fmt.Errorf("session hash key must be at least %d bytes long", minHashKeyLength)
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("session block key must be 16, 24 or 32 bytes long, got %d", len(blockKey))
	}

	var store *sessions.CookieStore
	if len(blockKey) > 0 {
		store = sessions.NewCookieStore(hashKey, blockKey)
	} else {
		store = sessions.NewCookieStore(hashKey)
	}

	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = flowCookieMaxAge
	}
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   maxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(maxAge)

	name := opts.Name
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieManager{store: store, name: name}, nil
}

// Open returns the store for r. A cookie that fails to decode, for example
// after a key rotation, yields a fresh empty session.
func (m *CookieManager) Open(w http.ResponseWriter, r *http.Request) (Store, error) {
	s, err := m.store.Get(r, m.name)
	if err != nil && s == nil {
		return nil, fmt.Errorf("failed to open session cookie: %w", err)
	}
	return &CookieStore{session: s, w: w, r: r}, nil
}

// CookieStore is a Store backed by a gorilla session cookie. Writes are
// buffered until Commit.
type CookieStore struct {
	session *sessions.Session
	w       http.ResponseWriter
	r       *http.Request
	dirty   bool
}

func (c *CookieStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.session.Values[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (c *CookieStore) Set(_ context.Context, key, value string) error {
	c.session.Values[key] = value
	c.dirty = true
	return nil
}

func (c *CookieStore) Remove(_ context.Context, key string) error {
	if _, ok := c.session.Values[key]; ok {
		delete(c.session.Values, key)
		c.dirty = true
	}
	return nil
}

// Commit writes the cookie if anything changed. An emptied session expires
// the cookie instead of writing an empty one.
func (c *CookieStore) Commit(_ context.Context) error {
	if !c.dirty {
		return nil
	}
	if len(c.session.Values) == 0 {
		opts := *c.session.Options
		opts.MaxAge = -1
		c.session.Options = &opts
	}
	if err := c.session.Save(c.r, c.w); err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}
	c.dirty = false
	return nil
}
