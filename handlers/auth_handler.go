// Package handlers provides the HTTP endpoints of the login flow: the
// per-provider authorize redirect, the provider callback, token refresh,
// logout and the provider listing.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lukaszraczylo/authflow/auth"
	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
	"github.com/lukaszraczylo/authflow/internal/logger"
	"github.com/lukaszraczylo/authflow/internal/metrics"
	"github.com/lukaszraczylo/authflow/internal/providers"
	"github.com/lukaszraczylo/authflow/internal/security"
	"github.com/lukaszraczylo/authflow/internal/token"
	"github.com/lukaszraczylo/authflow/middleware"
	"github.com/lukaszraczylo/authflow/session"
)

// Route paths that do not depend on the provider.
const (
	RefreshPath   = "/api/auth/refresh"
	LogoutPath    = "/api/auth/logout"
	ProvidersPath = "/api/auth/providers"
	CallbackPath  = "/api/auth/{provider}/callback"
)

// Logger interface for dependency injection
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ProviderRegistry lists and resolves providers. *providers.Registry implements it.
type ProviderRegistry interface {
	Get(name string) (*providers.Provider, error)
	All() []*providers.Provider
}

// TokenIssuer mints and renews application tokens. *token.Issuer implements it.
type TokenIssuer interface {
	Mint(payload map[string]any) (*token.Pair, error)
	Refresh(refreshToken string) (string, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// CallbackTransform turns the provider's user profile into the application
// token payload. The default payload is name, email, sub and provider.
type CallbackTransform func(ctx context.Context, provider string, profile *providers.UserProfile) (map[string]any, error)

// Options configures an AuthHandler.
type Options struct {
	// BaseURL prefixes callback paths to form the redirect_uri. When empty
	// it is derived from the request and its X-Forwarded-* headers.
	BaseURL            string
	SuccessRedirectURL string
	ErrorRedirectURL   string

	PKCE      bool
	StateMode auth.StateMode
	Cookies   token.CookieOptions

	OnCallback CallbackTransform
	// Limiter, when set, guards the authorize and callback routes.
	Limiter *rate.Limiter
	// Headers, when set, hardens every response and answers CORS preflights.
	Headers *security.Headers

	Logger  Logger
	Metrics *metrics.Metrics
}

// AuthHandler serves the login flow endpoints.
type AuthHandler struct {
	providers ProviderRegistry
	sessions  session.Opener
	issuer    TokenIssuer
	opts      Options
	logger    Logger
}

// NewAuthHandler creates a handler. sessions holds the in-flight login
// between the authorize and callback requests.
func NewAuthHandler(registry ProviderRegistry, sessions session.Opener, issuer TokenIssuer, opts Options) *AuthHandler {
	l := opts.Logger
	if l == nil {
		l = logger.GetNoOpLogger()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &AuthHandler{
		providers: registry,
		sessions:  sessions,
		issuer:    issuer,
		opts:      opts,
		logger:    l,
	}
}

// Routes returns a mux serving every endpoint: one authorize route per
// provider at its RequestHandlerPath, plus the shared routes.
func (h *AuthHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

// Register mounts the endpoints on mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	for _, p := range h.providers.All() {
		mux.Handle("GET "+p.RequestHandlerPath, h.Secure(h.Limit(h.AuthorizeHandler(p.Key()))))
	}
	mux.Handle("GET "+CallbackPath, h.Secure(h.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleCallback(w, r, r.PathValue("provider"))
	}))))
	for _, path := range []string{RefreshPath, LogoutPath, ProvidersPath} {
		mux.Handle("OPTIONS "+path, h.Secure(http.HandlerFunc(h.HandlePreflight)))
	}
	mux.Handle("GET "+RefreshPath, h.Secure(http.HandlerFunc(h.HandleRefresh)))
	mux.Handle("POST "+RefreshPath, h.Secure(http.HandlerFunc(h.HandleRefresh)))
	mux.Handle("GET "+LogoutPath, h.Secure(http.HandlerFunc(h.HandleLogout)))
	mux.Handle("POST "+LogoutPath, h.Secure(http.HandlerFunc(h.HandleLogout)))
	mux.Handle("GET "+ProvidersPath, h.Secure(http.HandlerFunc(h.HandleProviders)))
}

// AuthorizeHandler returns the handler starting a login with provider.
func (h *AuthHandler) AuthorizeHandler(provider string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleAuthorize(w, r, provider)
	})
}

// HandleAuthorize stores a fresh flow in the session and redirects to the provider.
func (h *AuthHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request, provider string) {
	store, err := h.sessions.Open(w, r)
	if err != nil {
		h.logger.Errorf("Failed to open session for %s login: %v", provider, err)
		h.sendError(w, autherrors.NewConfigurationError("session unavailable", err))
		return
	}

	ctrl := h.controller(r, store, auth.NewRedirectNavigator(w, r), true)
	if err := ctrl.StartLogin(r.Context(), provider); err != nil {
		h.logger.Errorf("Failed to start %s login: %v", provider, err)
		h.sendError(w, err)
		return
	}
}

// HandleCallback finishes the flow, sets the token cookies and redirects to
// the success URL. Failures never surface as an error response: they are
// logged and redirected to the error URL.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request, provider string) {
	ctx := r.Context()

	p, err := h.providers.Get(provider)
	if err != nil {
		h.failCallback(w, r, provider, err)
		return
	}

	store, err := h.sessions.Open(w, r)
	if err != nil {
		h.failCallback(w, r, p.Key(), fmt.Errorf("failed to open session: %w", err))
		return
	}

	ctrl := h.controller(r, store, auth.NewRedirectNavigator(w, r), false)
	result, err := ctrl.Resume(ctx, r.URL)
	if err == nil && result.Provider != p.Key() {
		err = autherrors.NewLoginFlowError(fmt.Sprintf("callback for %s does not match the login started with %s", p.Key(), result.Provider))
		if logoutErr := ctrl.Logout(ctx); logoutErr != nil {
			h.logger.Errorf("Failed to clear session after provider mismatch: %v", logoutErr)
		}
	}
	if err != nil {
		h.commitQuietly(ctx, store)
		h.failCallback(w, r, p.Key(), err)
		return
	}

	pair, err := h.mint(ctx, result)

	// The provider token is not needed once the application tokens exist.
	if clearErr := session.Clear(ctx, store); clearErr != nil && err == nil {
		err = clearErr
	}
	h.commitQuietly(ctx, store)
	if err != nil {
		h.failCallback(w, r, p.Key(), err)
		return
	}

	h.opts.Cookies.SetPairCookies(w, pair, h.issuer.AccessTTL(), h.issuer.RefreshTTL())
	h.logger.Infof("User logged in with %s", p.Key())
	http.Redirect(w, r, h.opts.SuccessRedirectURL, http.StatusFound)
}

// HandleRefresh issues a new access token cookie from the refresh cookie.
// A missing cookie is 401; a refresh token that fails verification is 403
// and leaves the access cookie untouched.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(token.RefreshCookieName)
	if err != nil || c.Value == "" {
		h.opts.Metrics.Refresh(autherrors.NewTokenMissing("refresh token"))
		h.sendError(w, autherrors.NewTokenMissing("refresh token"))
		return
	}

	access, err := h.issuer.Refresh(c.Value)
	h.opts.Metrics.Refresh(err)
	if err != nil {
		h.logger.Debugf("Refresh rejected: %v", err)
		h.sendError(w, err)
		return
	}

	h.opts.Cookies.SetAccessCookie(w, access, h.issuer.AccessTTL())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "refreshed",
		"expires_in": int(h.issuer.AccessTTL().Seconds()),
	})
}

// HandleLogout clears both token cookies and any in-flight login.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.opts.Cookies.ClearCookies(w)

	if store, err := h.sessions.Open(w, r); err == nil {
		if err := session.Clear(r.Context(), store); err != nil {
			h.logger.Errorf("Failed to clear session on logout: %v", err)
		}
		h.commitQuietly(r.Context(), store)
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

// ProviderInfo describes a provider to front-ends rendering login buttons.
type ProviderInfo struct {
	Name          string `json:"name"`
	AuthorizePath string `json:"authorize_path"`
	CallbackPath  string `json:"callback_path"`
}

// ProviderInfos describes every configured provider.
func (h *AuthHandler) ProviderInfos() []ProviderInfo {
	all := h.providers.All()
	out := make([]ProviderInfo, 0, len(all))
	for _, p := range all {
		out = append(out, ProviderInfo{
			Name:          p.Key(),
			AuthorizePath: p.RequestHandlerPath,
			CallbackPath:  p.CallbackPath(),
		})
	}
	return out
}

// HandleProviders lists the configured providers.
func (h *AuthHandler) HandleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.ProviderInfos()})
}

func (h *AuthHandler) controller(r *http.Request, store session.Store, nav auth.Navigator, autoCommit bool) *auth.Controller {
	return auth.NewController(h.providers, store, nav,
		auth.WithPKCE(h.opts.PKCE),
		auth.WithStateMode(h.opts.StateMode),
		auth.WithRedirectBase(h.baseURL(r)),
		auth.WithAutoCommit(autoCommit),
		auth.WithLogger(h.logger),
		auth.WithMetrics(h.opts.Metrics),
	)
}

// mint builds the token payload, through OnCallback when set, and signs it.
func (h *AuthHandler) mint(ctx context.Context, result *auth.Result) (*token.Pair, error) {
	payload := result.User.Payload(result.Provider)
	if h.opts.OnCallback != nil {
		transformed, err := h.opts.OnCallback(ctx, result.Provider, result.User)
		if err != nil {
			return nil, fmt.Errorf("callback transform failed: %w", err)
		}
		if transformed == nil {
			transformed = map[string]any{}
		}
		payload = transformed
	}
	return h.issuer.Mint(payload)
}

// failCallback logs err and redirects to the configured error URL.
func (h *AuthHandler) failCallback(w http.ResponseWriter, r *http.Request, provider string, err error) {
	h.opts.Metrics.CallbackFailure(provider)
	h.logger.Errorf("Callback for %s failed: %v", provider, err)
	http.Redirect(w, r, ErrorRedirectURL(h.opts.ErrorRedirectURL, autherrors.FormatUserMessage(err)), http.StatusFound)
}

func (h *AuthHandler) commitQuietly(ctx context.Context, store session.Store) {
	if err := session.Commit(ctx, store); err != nil {
		h.logger.Errorf("Failed to save session: %v", err)
	}
}

// Secure applies the configured security headers to next.
func (h *AuthHandler) Secure(next http.Handler) http.Handler {
	if h.opts.Headers == nil {
		return next
	}
	return h.opts.Headers.Wrap(next)
}

// HandlePreflight answers CORS preflights that Secure did not accept.
func (h *AuthHandler) HandlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusForbidden)
}

// Limit applies the configured rate limiter to next.
func (h *AuthHandler) Limit(next http.Handler) http.Handler {
	if h.opts.Limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.opts.Limiter.Allow() {
			h.logger.Debugf("Rate limit exceeded for %s", r.URL.Path)
			h.sendError(w, autherrors.NewRateLimited())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) sendError(w http.ResponseWriter, err error) {
	middleware.SendError(w, err)
}

// ErrorRedirectURL appends error=message to base, keeping any query it has.
func ErrorRedirectURL(base, message string) string {
	u, err := url.Parse(base)
	if err != nil {
		return "/?error=" + url.QueryEscape(message)
	}
	q := u.Query()
	q.Set("error", message)
	u.RawQuery = q.Encode()
	return u.String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) // Safe to ignore: response already started
}
