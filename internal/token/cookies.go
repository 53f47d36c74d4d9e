package token

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names carrying the application tokens.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieOptions are shared by both token cookies.
type CookieOptions struct {
	Domain string
	Secure bool
}

func (o CookieOptions) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   o.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetAccessCookie writes the access token cookie.
func (o CookieOptions) SetAccessCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, o.cookie(AccessCookieName, value, ttl))
}

// SetPairCookies writes both token cookies with the issuer's TTLs.
func (o CookieOptions) SetPairCookies(w http.ResponseWriter, pair *Pair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, o.cookie(AccessCookieName, pair.AccessToken, accessTTL))
	http.SetCookie(w, o.cookie(RefreshCookieName, pair.RefreshToken, refreshTTL))
}

// ClearCookies expires both token cookies.
func (o CookieOptions) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c := o.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// FromRequest returns the access token from the cookie or, failing that,
// from an "Authorization: Bearer" header.
func FromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
