package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report server activity.
type Metrics struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	computeLatency *prometheus.HistogramVec
	cacheHits      *prometheus.CounterVec
	catalogReloads prometheus.Counter
}

// MustNewMetrics constructs and registers the server collectors. Tests pass
// a fresh registry; registration errors panic like promauto helpers.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "status"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "northstar",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	computeLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "northstar",
			Subsystem: "engine",
			Name:      "compute_duration_seconds",
			Help:      "Time spent in the scorer and profile builder.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"},
	)
	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Subsystem: "server",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by route and outcome.",
		},
		[]string{"route", "outcome"},
	)
	catalogReloads := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Subsystem: "catalog",
			Name:      "reloads_total",
			Help:      "Catalog swaps applied to the running server.",
		},
	)

	collectors := []prometheus.Collector{requests, latency, computeLatency, cacheHits, catalogReloads}
	for _, c := range collectors {
		reg.MustRegister(c)
	}

	return &Metrics{
		requests:       requests,
		latency:        latency,
		computeLatency: computeLatency,
		cacheHits:      cacheHits,
		catalogReloads: catalogReloads,
	}
}

func (m *Metrics) observeRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, status).Inc()
	m.latency.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) observeCompute(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.computeLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) recordCache(route string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheHits.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) recordReload() {
	if m == nil {
		return
	}
	m.catalogReloads.Inc()
}
