package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	aggregate    prometheus.Histogram
}

func NewMetrics(version string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "division_stats_build_info",
		Help: "Build info for this binary (value is always 1).",
	}, []string{"version"})
	if version == "" {
		version = "dev"
	}
	build.WithLabelValues(version).Set(1)

	m := &Metrics{
		reg: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "robotevents_requests_total",
			Help: "RobotEvents API requests by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "robotevents_request_seconds",
			Help:    "RobotEvents API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "division_cache_lookups_total",
			Help: "Division stats cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		aggregate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "division_aggregate_seconds",
			Help:    "Time spent fetching matches and aggregating a division.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	reg.MustRegister(build, m.apiRequests, m.apiLatency, m.cacheLookups, m.aggregate)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observeAPI(endpoint string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (m *Metrics) cacheHit(tier string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(tier, "hit").Inc()
}

func (m *Metrics) cacheMiss(tier string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(tier, "miss").Inc()
}

func (m *Metrics) observeAggregate(took time.Duration) {
	if m == nil {
		return
	}
	m.aggregate.Observe(took.Seconds())
}
