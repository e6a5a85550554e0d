// Package metrics defines the Prometheus metric collectors for the memory
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal        *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	SearchFallbacksTotal prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CacheEvictionsTotal  prometheus.Counter
	MemoriesIndexedTotal prometheus.Counter
	MemoriesRemovedTotal prometheus.Counter
	IndexErrorsTotal     *prometheus.CounterVec
	RebuildsTotal        *prometheus.CounterVec
}

// New creates all collectors on a private registry, so multiple instances
// can coexist in tests without duplicate-registration panics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recallkit_searches_total",
				Help: "Total search executions by strategy.",
			},
			[]string{"strategy"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recallkit_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"strategy"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recallkit_search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		SearchFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recallkit_search_fallbacks_total",
				Help: "Total searches answered by the substring-scan fallback.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recallkit_cache_hits_total",
				Help: "Total result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recallkit_cache_misses_total",
				Help: "Total result cache misses.",
			},
		),
		CacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recallkit_cache_evictions_total",
				Help: "Total result cache evictions.",
			},
		),
		MemoriesIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recallkit_memories_indexed_total",
				Help: "Total memory index operations.",
			},
		),
		MemoriesRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recallkit_memories_removed_total",
				Help: "Total memory removals from the indexes.",
			},
		),
		IndexErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recallkit_index_errors_total",
				Help: "Total indexing failures by kind.",
			},
			[]string{"kind"},
		),
		RebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recallkit_index_rebuilds_total",
				Help: "Total index rebuild runs by status.",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SearchFallbacksTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.MemoriesIndexedTotal,
		m.MemoriesRemovedTotal,
		m.IndexErrorsTotal,
		m.RebuildsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
