// Package security provides response hardening for the login endpoints
package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HeadersConfig configures security headers
type HeadersConfig struct {
	// AllowedOrigins may call the JSON endpoints with credentials. Entries
	// are exact origins, "https://*.example.com" or "http://localhost:*".
	AllowedOrigins []string
	// HSTSMaxAge is sent on HTTPS requests when positive.
	HSTSMaxAge time.Duration
}

// Headers applies the headers every login response carries. Authorization
// codes travel in callback URLs, so referrers are never sent.
type Headers struct {
	cfg HeadersConfig
}

// NewHeaders creates the middleware.
func NewHeaders(cfg HeadersConfig) *Headers {
	return &Headers{cfg: cfg}
}

// Apply applies security headers to the response. It reports whether the
// request was a CORS preflight that has been answered.
func (h *Headers) Apply(rw http.ResponseWriter, req *http.Request) bool {
	headers := rw.Header()
	headers.Set("Referrer-Policy", "no-referrer")
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("X-Frame-Options", "DENY")

	// HSTS (only for HTTPS)
	if h.cfg.HSTSMaxAge > 0 && (req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https") {
		headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(int(h.cfg.HSTSMaxAge.Seconds()))+"; includeSubDomains")
	}

	origin := req.Header.Get("Origin")
	if origin == "" || !h.isOriginAllowed(origin) {
		return false
	}
	headers.Set("Access-Control-Allow-Origin", origin)
	headers.Set("Access-Control-Allow-Credentials", "true")
	headers.Add("Vary", "Origin")

	if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
		headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		headers.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		headers.Set("Access-Control-Max-Age", "600")
		rw.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// Wrap wraps an HTTP handler with security headers
func (h *Headers) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if h.Apply(rw, req) {
			return
		}
		next.ServeHTTP(rw, req)
	})
}

// isOriginAllowed checks if the origin is in the allowed list
func (h *Headers) isOriginAllowed(origin string) bool {
	for _, allowed := range h.cfg.AllowedOrigins {
		if matchOrigin(origin, allowed) {
			return true
		}
	}
	return false
}

// matchOrigin checks if an origin matches an allowed pattern
func matchOrigin(origin, pattern string) bool {
	if origin == pattern {
		return true
	}

	// Wildcard subdomain match (e.g., "https://*.example.com")
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(pattern, scheme+"*.") {
			domain := strings.TrimPrefix(pattern, scheme+"*.")
			if strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, "."+domain) {
				return true
			}
		}
	}

	// Port wildcard match (e.g., "http://localhost:*")
	if strings.HasSuffix(pattern, ":*") {
		prefix := strings.TrimSuffix(pattern, "*")
		if port, ok := strings.CutPrefix(origin, prefix); ok && port != "" {
			_, err := strconv.Atoi(port)
			return err == nil
		}
	}

	return false
}
