// Package metrics owns the Prometheus collectors of the auth service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	authEvents    *prometheus.CounterVec
	sessionsWiped prometheus.Counter
	orphansPruned prometheus.Counter
	rateLimited   prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	gatherer      prometheus.Gatherer
}

// New builds the collectors and registers them on reg. A nil reg uses a
// fresh private registry, which is what tests want.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Auth flow outcomes by operation.",
		}, []string{"op", "outcome"}),
		sessionsWiped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_wiped_total",
			Help: "Times every session of a user was revoked (logout-all or reuse detection).",
		}),
		orphansPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_session_index_orphans_pruned_total",
			Help: "Session index entries removed by the janitor because their record was gone.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		m.authEvents, m.sessionsWiped, m.orphansPruned, m.rateLimited, m.httpRequests, m.httpDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) AuthEvent(op, outcome string) {
	m.authEvents.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) SessionsWiped() { m.sessionsWiped.Inc() }

func (m *Metrics) OrphansPruned(n int) { m.orphansPruned.Add(float64(n)) }

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
