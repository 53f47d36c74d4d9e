// Package middleware provides access token verification for protected routes
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
	"github.com/lukaszraczylo/authflow/internal/logger"
	"github.com/lukaszraczylo/authflow/internal/metrics"
	"github.com/lukaszraczylo/authflow/internal/token"
)

// Logger interface for dependency injection
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Verifier checks an access token. *token.Issuer implements it.
type Verifier interface {
	Verify(accessToken string) (map[string]any, error)
}

// Options configures the middleware.
type Options struct {
	// ExcludedPaths are path prefixes served without a token.
	ExcludedPaths []string
	// LoginURL, when set, receives browser navigations that carry no token.
	// AJAX requests always get the JSON error.
	LoginURL string

	Logger  Logger
	Metrics *metrics.Metrics
}

type contextKey struct{}

var claimsKey contextKey

// AuthMiddleware gates a handler behind a valid access token.
type AuthMiddleware struct {
	next     http.Handler
	verifier Verifier
	opts     Options
	logger   Logger
}

// New wraps next.
func New(next http.Handler, verifier Verifier, opts Options) *AuthMiddleware {
	l := opts.Logger
	if l == nil {
		l = logger.GetNoOpLogger()
	}
	return &AuthMiddleware{
		next:     next,
		verifier: verifier,
		opts:     opts,
		logger:   l,
	}
}

// VerifyAccessToken returns the middleware in the func(http.Handler) form
// routers chain.
func VerifyAccessToken(verifier Verifier, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return New(next, verifier, opts)
	}
}

// ServeHTTP verifies the access token from the cookie or bearer header.
// Missing and expired tokens are 401, anything else that fails is 403.
func (m *AuthMiddleware) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if m.isExcluded(req.URL.Path) {
		m.next.ServeHTTP(rw, req)
		return
	}

	raw := token.FromRequest(req)
	if raw == "" && m.opts.LoginURL != "" && !IsAjaxRequest(req) {
		m.logger.Debugf("No access token on %s, redirecting to login", req.URL.Path)
		http.Redirect(rw, req, m.opts.LoginURL, http.StatusFound)
		return
	}

	claims, err := Authenticate(m.verifier, raw)
	if err != nil {
		reason := RejectionReason(err)
		m.opts.Metrics.TokenRejected(reason)
		m.logger.Debugf("Rejected %s %s: %v", req.Method, req.URL.Path, err)
		SendError(rw, err)
		return
	}

	m.next.ServeHTTP(rw, req.WithContext(WithClaims(req.Context(), claims)))
}

// Authenticate verifies raw and normalizes the failure into an AuthError.
func Authenticate(verifier Verifier, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, autherrors.NewTokenMissing("access token")
	}
	claims, err := verifier.Verify(raw)
	if err != nil {
		if _, ok := autherrors.AsAuthError(err); !ok {
			err = autherrors.NewTokenError(false, err)
		}
		return nil, err
	}
	return claims, nil
}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims attached by the middleware.
func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(claimsKey).(map[string]any)
	return claims, ok
}

// IsAjaxRequest determines if this is an AJAX request
func IsAjaxRequest(req *http.Request) bool {
	xhr := req.Header.Get("X-Requested-With")
	contentType := req.Header.Get("Content-Type")
	accept := req.Header.Get("Accept")

	return xhr == "XMLHttpRequest" ||
		strings.Contains(contentType, "application/json") ||
		strings.Contains(accept, "application/json")
}

// SendError writes err as the JSON error body used by every endpoint.
func SendError(rw http.ResponseWriter, err error) {
	status := autherrors.GetHTTPStatus(err)
	var body map[string]any
	if authErr, ok := autherrors.AsAuthError(err); ok {
		body = authErr.ToJSON()
	} else {
		body = map[string]any{
			"error":             http.StatusText(status),
			"error_description": autherrors.FormatUserMessage(err),
			"status_code":       status,
		}
	}
	if status == http.StatusUnauthorized {
		rw.Header().Set("WWW-Authenticate", `Bearer realm="authflow"`)
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Cache-Control", "no-store")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(body) // Safe to ignore: response already started
}

func (m *AuthMiddleware) isExcluded(path string) bool {
	for _, prefix := range m.opts.ExcludedPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RejectionReason labels a verification failure for the rejection metric.
func RejectionReason(err error) string {
	authErr, ok := autherrors.AsAuthError(err)
	if !ok {
		return "invalid"
	}
	switch authErr.Code {
	case autherrors.ErrCodeTokenMissing:
		return "missing"
	case autherrors.ErrCodeTokenExpired:
		return "expired"
	default:
		return "invalid"
	}
}
