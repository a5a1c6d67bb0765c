// metrics.go - Prometheus instrumentation for the gateway.

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Metrics bundles the gateway's Prometheus collectors behind a dedicated
// registry so tests can run multiple servers without collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal       *prometheus.CounterVec
	verificationsTotal  *prometheus.CounterVec
	withdrawalsTotal    *prometheus.CounterVec
	verificationSeconds prometheus.Histogram
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
}

// NewMetrics registers the gateway collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolgate",
			Name:      "requests_total",
			Help:      "HTTP requests by handler and status code.",
		}, []string{"handler", "code"}),
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolgate",
			Name:      "verifications_total",
			Help:      "Completed proof verifications by outcome.",
		}, []string{"outcome"}),
		withdrawalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolgate",
			Name:      "withdrawals_total",
			Help:      "Withdrawal verification attempts by outcome.",
		}, []string{"outcome"}),
		verificationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "poolgate",
			Name:      "verification_duration_seconds",
			Help:      "Wall-clock duration of verification calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "poolgate",
			Name:      "result_cache_hits_total",
			Help:      "Verification result cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "poolgate",
			Name:      "result_cache_misses_total",
			Help:      "Verification result cache misses.",
		}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.verificationsTotal,
		m.withdrawalsTotal,
		m.verificationSeconds,
		m.cacheHits,
		m.cacheMisses,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
