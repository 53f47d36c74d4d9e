package handlers

import (
	"net/http"
	"strings"
)

// baseURL returns the configured base URL or, without one, the origin the
// client used to reach us.
func (h *AuthHandler) baseURL(r *http.Request) string {
	if h.opts.BaseURL != "" {
		return h.opts.BaseURL
	}
	return determineScheme(r) + "://" + determineHost(r)
}

// determineScheme checks X-Forwarded-Proto first, then TLS presence.
func determineScheme(r *http.Request) string {
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		// Proxies may append a list: "https, http".
		return strings.TrimSpace(strings.Split(scheme, ",")[0])
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// determineHost checks X-Forwarded-Host first, then falls back to r.Host.
func determineHost(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		return strings.TrimSpace(strings.Split(host, ",")[0])
	}
	return r.Host
}
