package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// feels-like service.
type Metrics struct {
	// Place-name resolution.
	ResolveRequests *prometheus.CounterVec // labels: outcome={resolved,unresolved}, method=tier or failure reason

	// Retrieval path.
	CacheLookups     *prometheus.CounterVec   // labels: product, result={hit,miss,stale_hit}
	UpstreamRequests *prometheus.CounterVec   // labels: product, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: product
	BreakerOpen      *prometheus.GaugeVec     // labels: host; 1 while the circuit is open

	// Batch endpoint.
	BatchSize         prometheus.Histogram
	BatchItemDuration prometheus.Histogram

	// Hazard notifications.
	AlertsPublished prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ResolveRequests,
		m.CacheLookups,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.BreakerOpen,
		m.BatchSize,
		m.BatchItemDuration,
		m.AlertsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ResolveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feelslike",
			Name:      "resolve_requests_total",
			Help:      "Place-name resolutions by outcome and matching method.",
		}, []string{"outcome", "method"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feelslike",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by product and result.",
		}, []string{"product", "result"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feelslike",
			Name:      "upstream_requests_total",
			Help:      "KMA upstream requests by product and outcome.",
		}, []string{"product", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feelslike",
			Name:      "upstream_duration_seconds",
			Help:      "KMA upstream request duration in seconds, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"product"}),
		BreakerOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "feelslike",
			Name:      "breaker_open",
			Help:      "Circuit breaker state per upstream host, 1 while open.",
		}, []string{"host"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feelslike",
			Name:      "batch_size",
			Help:      "Number of regions per batch request.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		BatchItemDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feelslike",
			Name:      "batch_item_duration_seconds",
			Help:      "Duration of one region within a batch request.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feelslike",
			Name:      "alerts_published_total",
			Help:      "Hazard alerts published to the alert topic.",
		}),
	}
}
