// Package auth implements the authorization-code flow as a state machine.
//
// A Controller is stateless between calls apart from its observable
// Snapshot: every decision in Resume is made from the persisted session
// record and the URL the provider redirected to, so a flow started by one
// process can be resumed by another.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
	"github.com/lukaszraczylo/authflow/internal/logger"
	"github.com/lukaszraczylo/authflow/internal/metrics"
	"github.com/lukaszraczylo/authflow/internal/pkce"
	"github.com/lukaszraczylo/authflow/internal/providers"
	"github.com/lukaszraczylo/authflow/session"
)

// Logger interface for dependency injection
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ProviderSource resolves providers by name. *providers.Registry implements it.
type ProviderSource interface {
	Get(name string) (*providers.Provider, error)
}

// Controller drives one session through the login flow.
type Controller struct {
	providers ProviderSource
	store     session.Store
	nav       Navigator
	logger    Logger
	metrics   *metrics.Metrics

	pkce         bool
	stateMode    StateMode
	responseType string
	autoCommit   bool
	redirectURI  func(p *providers.Provider) string

	mu       sync.RWMutex
	state    State
	user     *providers.UserProfile
	provider string
}

// NewController creates a controller. The store holds the session record;
// nav performs the navigation to the provider.
func NewController(source ProviderSource, store session.Store, nav Navigator, opts ...Option) *Controller {
	c := &Controller{
		providers:    source,
		store:        store,
		nav:          nav,
		logger:       defaultLogger(),
		pkce:         true,
		stateMode:    StateNonce,
		responseType: providers.ResponseTypeCode,
		autoCommit:   true,
		redirectURI:  func(*providers.Provider) string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		State:         c.state,
		Authenticated: c.state == StateAuthenticated,
		Loading:       c.state == StateResuming,
		Provider:      c.provider,
		User:          c.user,
	}
}

// StartLogin persists a fresh flow for providerName and navigates to the
// provider. Lookup and configuration errors are returned before anything is
// persisted. Calling it again while a flow is pending supersedes that flow.
func (c *Controller) StartLogin(ctx context.Context, providerName string) error {
	p, err := c.providers.Get(providerName)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	state := p.State
	if c.stateMode == StateNonce {
		state = uuid.NewString()
	}

	req := providers.AuthorizationRequest{
		RedirectURI:  c.redirectURI(p),
		ResponseType: c.responseType,
		Scope:        p.Scope(),
		State:        state,
		AccessType:   p.AccessType,
	}
	values := map[string]string{
		session.KeyState:        state,
		session.KeyProvider:     p.Key(),
		session.KeyRedirectURI:  req.RedirectURI,
		session.KeyCodeVerifier: "",
		session.KeyCode:         "",
		session.KeyAccessToken:  "",
		session.KeyRefreshToken: "",
	}

	if c.pkce {
		pair, err := pkce.NewPair()
		if err != nil {
			return fmt.Errorf("failed to generate PKCE pair: %w", err)
		}
		req.CodeChallenge = pair.Challenge
		req.CodeChallengeMethod = pkce.MethodS256
		values[session.KeyCodeVerifier] = pair.Verifier
		c.logger.Debugf("PKCE enabled, generated code challenge for %s", p.Name)
	}

	authURL, err := p.Authorize(req)
	if err != nil {
		return err
	}

	if err := session.SetAll(ctx, c.store, values); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.state = StateAwaitingRedirect
	c.user = nil
	c.provider = p.Key()
	c.mu.Unlock()

	c.metrics.LoginStarted(p.Key())
	c.logger.Debugf("Redirecting user to %s for login", p.Name)
	return c.nav.Navigate(ctx, authURL)
}

// Resume continues the flow after the provider redirected to current.
// Any failure logs the session out completely before the error is returned.
func (c *Controller) Resume(ctx context.Context, current *url.URL) (*Result, error) {
	c.setState(StateResuming)

	result, err := c.resume(ctx, current)
	if err == nil {
		err = c.commit(ctx)
	}
	if err != nil {
		c.setState(StateFailed)
		c.logger.Errorf("Login flow failed, clearing session: %v", err)
		if logoutErr := c.Logout(ctx); logoutErr != nil {
			c.logger.Errorf("Failed to clear session after login failure: %v", logoutErr)
		}
		return nil, err
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.user = result.User
	c.provider = result.Provider
	c.mu.Unlock()

	c.logger.Infof("User authenticated with %s", result.Provider)
	return result, nil
}

// Logout clears every persisted field and resets the controller. It never
// calls the network and is safe to call repeatedly.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateIdle
	c.user = nil
	c.provider = ""
	c.mu.Unlock()

	if err := session.Clear(ctx, c.store); err != nil {
		return err
	}
	return c.commit(ctx)
}

func (c *Controller) resume(ctx context.Context, current *url.URL) (*Result, error) {
	rec, err := session.Load(ctx, c.store)
	if err != nil {
		return nil, err
	}
	params := extractCallbackParams(current)

	if params.Error != "" {
		return nil, autherrors.NewLoginFlowError(fmt.Sprintf("provider returned error %q: %s", params.Error, params.ErrorDescription))
	}
	if rec.State != "" && params.State != "" && params.State != rec.State {
		return nil, autherrors.NewLoginFlowError("state mismatch")
	}

	if rec.HasPendingExchange(c.pkce) {
		p, err := c.providerFor(rec)
		if err != nil {
			return nil, err
		}

		if rec.AccessToken != "" {
			profile, err := p.FetchUserInfo(ctx, rec.AccessToken)
			if err == nil {
				c.logger.Debugf("Reused cached access token for %s", p.Name)
				return &Result{Provider: p.Key(), User: profile}, nil
			}
			c.logger.Debugf("Cached access token rejected by %s, exchanging code again: %v", p.Name, err)
		}
		return c.exchange(ctx, p, rec)
	}

	if params.State == "" || (params.Code == "" && params.AccessToken == "") {
		return nil, autherrors.NewLoginFlowError("code or state missing from redirect")
	}
	// A nonce only protects the callback if this session issued it. Only
	// static state accepts a redirect no login was started for.
	if c.stateMode == StateNonce && rec.State == "" {
		return nil, autherrors.NewLoginFlowError("no login in progress for this session")
	}
	if c.pkce && rec.CodeVerifier == "" && rec.State != "" {
		return nil, autherrors.NewLoginFlowError("code verifier missing from session")
	}

	rec.State = params.State
	p, err := c.providerFor(rec)
	if err != nil {
		return nil, err
	}

	if params.Code == "" {
		return c.implicit(ctx, p, rec, params.AccessToken)
	}

	rec.Code = params.Code
	if err := session.SetAll(ctx, c.store, map[string]string{
		session.KeyCode:     rec.Code,
		session.KeyState:    rec.State,
		session.KeyProvider: p.Key(),
	}); err != nil {
		return nil, err
	}
	return c.exchange(ctx, p, rec)
}

// exchange trades the persisted code for a token and fetches the user.
func (c *Controller) exchange(ctx context.Context, p *providers.Provider, rec *session.Record) (*Result, error) {
	redirectURI := rec.RedirectURI
	if redirectURI == "" {
		redirectURI = c.redirectURI(p)
	}
	c.logger.Debugf("Exchanging authorization code %s with %s", logger.Redact(rec.Code), p.Name)

	started := time.Now()
	tok, err := p.ExchangeCode(ctx, rec.Code, rec.State, redirectURI, rec.CodeVerifier)
	c.metrics.TokenExchange(p.Key(), started, err)
	if err != nil {
		return nil, err
	}

	if err := session.SetAll(ctx, c.store, map[string]string{
		session.KeyAccessToken:  tok.AccessToken,
		session.KeyRefreshToken: tok.RefreshToken,
	}); err != nil {
		return nil, err
	}

	profile, err := p.FetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	return &Result{Provider: p.Key(), User: profile, Token: tok, Exchanged: true}, nil
}

// implicit handles response_type=token redirects, where the provider
// returns the access token directly.
func (c *Controller) implicit(ctx context.Context, p *providers.Provider, rec *session.Record, accessToken string) (*Result, error) {
	if c.responseType != providers.ResponseTypeToken {
		return nil, autherrors.NewLoginFlowError("unexpected access token in redirect")
	}
	if err := session.SetAll(ctx, c.store, map[string]string{
		session.KeyAccessToken: accessToken,
		session.KeyState:       rec.State,
		session.KeyProvider:    p.Key(),
	}); err != nil {
		return nil, err
	}

	profile, err := p.FetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &Result{
		Provider: p.Key(),
		User:     profile,
		Token:    &providers.TokenResponse{AccessToken: accessToken},
	}, nil
}

// providerFor resolves the provider of a record. Records written in static
// state mode without a provider key carry the provider name as state.
func (c *Controller) providerFor(rec *session.Record) (*providers.Provider, error) {
	name := rec.Provider
	if name == "" {
		name = rec.State
	}
	return c.providers.Get(name)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) commit(ctx context.Context) error {
	if !c.autoCommit {
		return nil
	}
	return session.Commit(ctx, c.store)
}
