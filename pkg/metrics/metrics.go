// Package metrics defines the Prometheus collectors used by the indexer, the
// query engine and the line-protocol server, and exposes an HTTP handler for
// scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for pagesearch.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsTotal      *prometheus.CounterVec
	ConnectionsInFlight   prometheus.Gauge
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         prometheus.Histogram
	SearchResultsCount    prometheus.Histogram
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	DocsIndexedTotal      prometheus.Counter
	PagesIndexedTotal     prometheus.Counter
	DocFailuresTotal      *prometheus.CounterVec
	IndexTerms            prometheus.Gauge
	IndexBuildSeconds     prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
	AnalyticsDroppedTotal prometheus.Counter
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

// New creates all collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ConnectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesearch_connections_total",
				Help: "Client connections handled, by outcome (ok, protocol_error, timeout, rate_limited, io_error).",
			},
			[]string{"outcome"},
		),
		ConnectionsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagesearch_connections_in_flight",
				Help: "Number of client connections currently being served.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesearch_search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagesearch_search_latency_seconds",
				Help:    "Lookup plus encoding latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagesearch_search_results_count",
				Help:    "Number of location records returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagesearch_cache_hits_total",
				Help: "Total number of response cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagesearch_cache_misses_total",
				Help: "Total number of response cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagesearch_docs_indexed_total",
				Help: "Total documents folded into the index.",
			},
		),
		PagesIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagesearch_pages_indexed_total",
				Help: "Total pages tokenized.",
			},
		),
		DocFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesearch_doc_failures_total",
				Help: "Documents that could not be indexed, by reason (open, extraction, unsupported).",
			},
			[]string{"reason"},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagesearch_index_terms",
				Help: "Number of distinct terms in the loaded index.",
			},
		),
		IndexBuildSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagesearch_index_build_seconds",
				Help: "Wall time of the startup corpus scan.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pagesearch_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		AnalyticsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagesearch_analytics_dropped_total",
				Help: "Query analytics events dropped: buffer full or publish failed.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesearch_http_requests_total",
				Help: "Requests to the metrics and health endpoints.",
			},
			[]string{"method", "path", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagesearch_http_request_duration_seconds",
				Help:    "Latency of the metrics and health endpoints.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectionsTotal,
		m.ConnectionsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.PagesIndexedTotal,
		m.DocFailuresTotal,
		m.IndexTerms,
		m.IndexBuildSeconds,
		m.CircuitBreakerState,
		m.AnalyticsDroppedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
