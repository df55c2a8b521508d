// Package metrics registers Prometheus instrumentation for the aggregation
// pipeline. A nil *Metrics is accepted everywhere and disables collection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all counters exported by the service.
type Metrics struct {
	CacheHits        *prometheus.CounterVec // labels: tier (memory|persistent)
	CacheMisses      prometheus.Counter
	ProviderRequests *prometheus.CounterVec // labels: provider
	ProviderErrors   *prometheus.CounterVec // labels: provider
	QuotesServed     *prometheus.CounterVec // labels: source
	StreamReconnects prometheus.Counter
	StreamTicks      prometheus.Counter
}

// New registers and returns the service metrics on the default registry.
func New() *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefeed_cache_hits_total",
			Help: "Cache hits by tier",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotefeed_cache_misses_total",
			Help: "Cache lookups that missed both tiers",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefeed_provider_requests_total",
			Help: "Upstream provider attempts by provider",
		}, []string{"provider"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefeed_provider_errors_total",
			Help: "Upstream provider failures (errors, timeouts, invalid data)",
		}, []string{"provider"}),
		QuotesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotefeed_quotes_served_total",
			Help: "Quotes returned to callers by winning source",
		}, []string{"source"}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotefeed_stream_reconnects_total",
			Help: "Live ticker stream reconnection attempts",
		}),
		StreamTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotefeed_stream_ticks_total",
			Help: "Ticker events received from live streams",
		}),
	}

	prometheus.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.ProviderRequests,
		m.ProviderErrors,
		m.QuotesServed,
		m.StreamReconnects,
		m.StreamTicks,
	)

	return m
}

// HitTier counts a cache hit for the given tier; nil-safe.
func (m *Metrics) HitTier(tier string) {
	if m != nil {
		m.CacheHits.WithLabelValues(tier).Inc()
	}
}

// Miss counts a full cache miss; nil-safe.
func (m *Metrics) Miss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// ProviderRequest counts one upstream attempt; nil-safe.
func (m *Metrics) ProviderRequest(provider string) {
	if m != nil {
		m.ProviderRequests.WithLabelValues(provider).Inc()
	}
}

// ProviderError counts one upstream failure; nil-safe.
func (m *Metrics) ProviderError(provider string) {
	if m != nil {
		m.ProviderErrors.WithLabelValues(provider).Inc()
	}
}

// QuoteServed counts a quote returned to a caller; nil-safe.
func (m *Metrics) QuoteServed(source string) {
	if m != nil {
		m.QuotesServed.WithLabelValues(source).Inc()
	}
}

// Reconnect counts a stream reconnection attempt; nil-safe.
func (m *Metrics) Reconnect() {
	if m != nil {
		m.StreamReconnects.Inc()
	}
}

// Tick counts one received ticker event; nil-safe.
func (m *Metrics) Tick() {
	if m != nil {
		m.StreamTicks.Inc()
	}
}
