package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes
const (
	OutcomeFetched  = "fetched"
	OutcomeCacheHit = "cache_hit"
	OutcomeFallback = "fallback"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
)

// Metrics holds the dashboard's prometheus collectors.
// ⭐ SSOT: 메트릭 정의는 여기서만
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheTotal    *prometheus.CounterVec
	computeTotal  *prometheus.CounterVec
	computeTime   *prometheus.HistogramVec
	jobRuns       *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers all collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdash_fetch_total",
			Help: "Price frame requests by asset and outcome",
		}, []string{"asset", "outcome"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketdash_fetch_duration_seconds",
			Help:    "Upstream price fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"asset"}),
		cacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdash_cache_total",
			Help: "Frame cache lookups by layer and result",
		}, []string{"layer", "result"}),
		computeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdash_compute_total",
			Help: "Analytics computations by kind (portfolio, backtest, forecast)",
		}, []string{"kind"}),
		computeTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketdash_compute_duration_seconds",
			Help:    "Analytics computation latency including data fetch",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		jobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdash_job_runs_total",
			Help: "Scheduled job runs by job and status",
		}, []string{"job", "status"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdash_http_requests_total",
			Help: "API requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketdash_http_request_duration_seconds",
			Help:    "API request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry exposes the underlying registry (tests, custom exporters)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves /metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one frame request
func (m *Metrics) ObserveFetch(asset, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(asset, outcome).Inc()
	if outcome == OutcomeFetched || outcome == OutcomeFallback || outcome == OutcomeEmpty {
		m.fetchDuration.WithLabelValues(asset).Observe(d.Seconds())
	}
}

// ObserveCache records a cache lookup ("redis" or "memory")
func (m *Metrics) ObserveCache(layer string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(layer, result).Inc()
}

// ObserveCompute records an analytics computation
func (m *Metrics) ObserveCompute(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.computeTotal.WithLabelValues(kind).Inc()
	m.computeTime.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveJob records a scheduled job run
func (m *Metrics) ObserveJob(job string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
}

// ObserveHTTP records an API request
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
