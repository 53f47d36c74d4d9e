// Package authflow wires the OAuth2 authorization-code flow together: the
// provider registry, the login session store, the application token issuer,
// the HTTP endpoints and the access token gate, all built from one
// config.Config.
package authflow

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/lukaszraczylo/authflow/auth"
	"github.com/lukaszraczylo/authflow/config"
	"github.com/lukaszraczylo/authflow/handlers"
	"github.com/lukaszraczylo/authflow/internal/logger"
	"github.com/lukaszraczylo/authflow/internal/metrics"
	"github.com/lukaszraczylo/authflow/internal/providers"
	"github.com/lukaszraczylo/authflow/internal/security"
	"github.com/lukaszraczylo/authflow/internal/token"
	"github.com/lukaszraczylo/authflow/middleware"
	"github.com/lukaszraczylo/authflow/session"
)

// Client owns every component of a running login flow.
type Client struct {
	cfg      *config.Config
	logs     *logger.Factory
	logger   logger.Logger
	metrics  *metrics.Metrics
	registry *providers.Registry
	issuer   *token.Issuer
	sessions session.Opener
	redis    redis.UniversalClient
	ownRedis bool
	ownLogs  bool
	handler  *handlers.AuthHandler
}

type clientOptions struct {
	registerer prometheus.Registerer
	onCallback handlers.CallbackTransform
	redis      redis.UniversalClient
	loggers    *logger.Factory
}

// Option customizes New.
type Option func(*clientOptions)

// WithRegisterer registers the metrics on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *clientOptions) { o.registerer = reg }
}

// WithCallbackTransform replaces the default token payload built from the
// provider profile.
func WithCallbackTransform(fn handlers.CallbackTransform) Option {
	return func(o *clientOptions) { o.onCallback = fn }
}

// WithRedisClient supplies the redis client for the redis session store.
// The caller keeps ownership and Close leaves it open.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *clientOptions) { o.redis = client }
}

// WithLoggerFactory shares an existing logger factory.
func WithLoggerFactory(f *logger.Factory) Option {
	return func(o *clientOptions) { o.loggers = f }
}

// New validates cfg and builds the client. ctx bounds the redis ping when
// the redis session store is selected.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := clientOptions{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{cfg: cfg, logs: o.loggers}
	if c.logs == nil {
		logs, err := logger.NewFactory(cfg.Logging.LoggerConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to set up logging: %w", err)
		}
		c.logs = logs
		c.ownLogs = true
	}
	c.logger = c.logs.GetLogger("authflow")

	built := false
	defer func() {
		if !built {
			_ = c.Close()
		}
	}()

	var err error
	if c.metrics, err = metrics.New(o.registerer); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if c.registry, err = cfg.BuildProviders(); err != nil {
		return nil, err
	}
	if c.issuer, err = token.NewIssuer(token.Config{
		Secret:     []byte(cfg.Token.Secret),
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	}); err != nil {
		return nil, err
	}
	if err := c.openSessions(ctx, o.redis); err != nil {
		return nil, err
	}

	headers := security.NewHeaders(security.HeadersConfig{
		AllowedOrigins: cfg.Security.AllowedOrigins,
		HSTSMaxAge:     cfg.Security.HSTSMaxAge,
	})
	c.handler = handlers.NewAuthHandler(c.registry, c.sessions, c.issuer, handlers.Options{
		BaseURL:            cfg.BaseURL,
		SuccessRedirectURL: cfg.SuccessRedirectURL,
		ErrorRedirectURL:   cfg.ErrorRedirectURL,
		PKCE:               cfg.PKCE,
		StateMode:          stateMode(cfg.StateMode),
		Cookies:            token.CookieOptions{Domain: cfg.Cookie.Domain, Secure: cfg.Cookie.Secure},
		OnCallback:         o.onCallback,
		Limiter:            newLimiter(cfg.RateLimit),
		Headers:            headers,
		Logger:             c.logs.GetLogger("handlers"),
		Metrics:            c.metrics,
	})

	built = true
	c.logger.Infof("authflow ready with providers %v (session store %s)", c.registry.Names(), cfg.Session.Store)
	return c, nil
}

func (c *Client) openSessions(ctx context.Context, client redis.UniversalClient) error {
	s := c.cfg.Session
	switch s.Store {
	case config.SessionStoreRedis:
		if client == nil {
			client = c.cfg.Redis.NewClient()
			c.ownRedis = true
		}
		c.redis = client
		manager := session.NewRedisManager(client, session.RedisOptions{
			KeyPrefix:  c.cfg.Redis.KeyPrefix,
			TTL:        c.cfg.Redis.TTL,
			CookieName: s.Name,
			Domain:     c.cfg.Cookie.Domain,
			Secure:     c.cfg.Cookie.Secure,
		})
		if err := manager.Ping(ctx); err != nil {
			return fmt.Errorf("redis session store unavailable: %w", err)
		}
		c.sessions = manager
	case config.SessionStoreMemory:
		c.sessions = session.NewMemoryManager(session.RedisOptions{
			TTL:        s.MaxAge,
			CookieName: s.Name,
			Domain:     c.cfg.Cookie.Domain,
			Secure:     c.cfg.Cookie.Secure,
		})
	default:
		var blockKey []byte
		if s.BlockKey != "" {
			blockKey = []byte(s.BlockKey)
		}
		manager, err := session.NewCookieManager([]byte(s.HashKey), blockKey, session.CookieOptions{
			Name:   s.Name,
			Domain: c.cfg.Cookie.Domain,
			Secure: c.cfg.Cookie.Secure,
			MaxAge: int(s.MaxAge.Seconds()),
		})
		if err != nil {
			return err
		}
		c.sessions = manager
	}
	return nil
}

// Handler returns a mux serving the login flow endpoints.
func (c *Client) Handler() http.Handler {
	return c.handler.Routes()
}

// Register mounts the login flow endpoints on mux.
func (c *Client) Register(mux *http.ServeMux) {
	c.handler.Register(mux)
}

// AuthHandler exposes the endpoints for router bindings such as ginauth.
func (c *Client) AuthHandler() *handlers.AuthHandler {
	return c.handler
}

// Protect gates next behind a valid access token.
func (c *Client) Protect(next http.Handler) http.Handler {
	return c.ProtectWith(middleware.Options{})(next)
}

// ProtectWith returns the gate with extra options. Logger and Metrics
// default to the client's.
func (c *Client) ProtectWith(opts middleware.Options) func(http.Handler) http.Handler {
	defaults := c.MiddlewareOptions()
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}
	if opts.Metrics == nil {
		opts.Metrics = defaults.Metrics
	}
	return middleware.VerifyAccessToken(c.issuer, opts)
}

// MiddlewareOptions returns gate options carrying the client's logger and
// metrics, for router bindings.
func (c *Client) MiddlewareOptions() middleware.Options {
	return middleware.Options{
		Logger:  c.logs.GetLogger("middleware"),
		Metrics: c.metrics,
	}
}

// ClaimsFromContext returns the claims attached by Protect.
func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	return middleware.ClaimsFromContext(ctx)
}

// NewController creates a controller over store configured like the HTTP
// endpoints. Extra options are applied last.
func (c *Client) NewController(store session.Store, nav auth.Navigator, opts ...auth.Option) *auth.Controller {
	base := []auth.Option{
		auth.WithPKCE(c.cfg.PKCE),
		auth.WithStateMode(stateMode(c.cfg.StateMode)),
		auth.WithRedirectBase(c.handlerBase()),
		auth.WithLogger(c.logs.GetLogger("controller")),
		auth.WithMetrics(c.metrics),
	}
	return auth.NewController(c.registry, store, nav, append(base, opts...)...)
}

// Providers lists the configured providers.
func (c *Client) Providers() []handlers.ProviderInfo {
	return c.handler.ProviderInfos()
}

// Registry returns the provider registry.
func (c *Client) Registry() *providers.Registry {
	return c.registry
}

// Issuer returns the application token issuer.
func (c *Client) Issuer() *token.Issuer {
	return c.issuer
}

// Logger returns a named logger from the client's factory.
func (c *Client) Logger(name string) logger.Logger {
	return c.logs.GetLogger(name)
}

// Close releases the redis client and log file the client created.
func (c *Client) Close() error {
	var firstErr error
	if c.ownRedis && c.redis != nil {
		if err := c.redis.Close(); err != nil {
			firstErr = err
		}
		c.redis = nil
	}
	if c.ownLogs && c.logs != nil {
		if err := c.logs.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) handlerBase() string {
	return c.cfg.RedirectURI("")
}

func stateMode(mode string) auth.StateMode {
	if mode == config.StateModeStatic {
		return auth.StateStatic
	}
	return auth.StateNonce
}

func newLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if !cfg.Enabled {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}
