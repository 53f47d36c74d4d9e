// Package metrics exposes Prometheus counters for the login flow.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the collectors for one client.
type Metrics struct {
	// loginsStarted counts authorization redirects by provider.
	loginsStarted *prometheus.CounterVec

	// tokenExchanges counts code exchanges by provider and result.
	tokenExchanges *prometheus.CounterVec

	// exchangeDuration tracks how long the token endpoint takes.
	exchangeDuration *prometheus.HistogramVec

	// refreshes counts refresh endpoint calls by result.
	refreshes *prometheus.CounterVec

	// callbackFailures counts callbacks that ended on the error redirect.
	callbackFailures *prometheus.CounterVec

	// tokenRejections counts middleware rejections by reason.
	tokenRejections *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors. Collectors already registered on reg by
// an earlier New are reused, so clients sharing a registry share counters.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		loginsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authflow_logins_started_total",
				Help: "Total number of login flows started",
			},
			[]string{"provider"},
		),
		tokenExchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authflow_token_exchanges_total",
				Help: "Total number of authorization code exchanges",
			},
			[]string{"provider", "result"},
		),
		exchangeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authflow_token_exchange_duration_seconds",
				Help:    "Duration of authorization code exchanges in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authflow_refresh_total",
				Help: "Total number of access token refreshes",
			},
			[]string{"result"},
		),
		callbackFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authflow_callback_failures_total",
				Help: "Total number of failed provider callbacks",
			},
			[]string{"provider"},
		),
		tokenRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authflow_token_rejections_total",
				Help: "Total number of requests rejected by the access token gate",
			},
			[]string{"reason"},
		),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.loginsStarted, err = register(reg, m.loginsStarted); err != nil {
		return nil, err
	}
	if m.tokenExchanges, err = register(reg, m.tokenExchanges); err != nil {
		return nil, err
	}
	if m.exchangeDuration, err = register(reg, m.exchangeDuration); err != nil {
		return nil, err
	}
	if m.refreshes, err = register(reg, m.refreshes); err != nil {
		return nil, err
	}
	if m.callbackFailures, err = register(reg, m.callbackFailures); err != nil {
		return nil, err
	}
	if m.tokenRejections, err = register(reg, m.tokenRejections); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, returning the collector reg already holds under
// the same descriptor when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

// LoginStarted records an authorization redirect.
func (m *Metrics) LoginStarted(provider string) {
	if m == nil {
		return
	}
	m.loginsStarted.WithLabelValues(provider).Inc()
}

// TokenExchange records a finished code exchange.
func (m *Metrics) TokenExchange(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.exchangeDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
	m.tokenExchanges.WithLabelValues(provider, result(err)).Inc()
}

// Refresh records a refresh attempt.
func (m *Metrics) Refresh(err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result(err)).Inc()
}

// CallbackFailure records a callback that redirected to the error page.
func (m *Metrics) CallbackFailure(provider string) {
	if m == nil {
		return
	}
	m.callbackFailures.WithLabelValues(provider).Inc()
}

// TokenRejected records an access token rejection.
func (m *Metrics) TokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenRejections.WithLabelValues(reason).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
