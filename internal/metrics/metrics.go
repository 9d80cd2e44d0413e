// Package metrics exposes Prometheus instrumentation for the proxy,
// the cache tiers, persistence, and the admission/latency subsystems.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus instrument cachebolt registers.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	activeConnections  prometheus.Gauge
	cacheHitsTotal      *prometheus.CounterVec
	cacheMissesTotal    *prometheus.CounterVec
	persistAttempts    *prometheus.CounterVec
	persistErrors      *prometheus.CounterVec
	persistQueueDepth  prometheus.Gauge
	admissionRejected  prometheus.Counter
	latencyFailovers   *prometheus.CounterVec
	bypassTotal        *prometheus.CounterVec
	refreshTriggered   prometheus.Counter
	evictionsTotal     prometheus.Counter
}

// New creates and registers every metric against the default registry.
func New() *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachebolt_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "status_code", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cachebolt_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "outcome"},
		),
		activeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cachebolt_active_connections",
				Help: "Number of in-flight requests",
			},
		),
		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachebolt_cache_hits_total",
				Help: "Cache hits by tier (hot, durable)",
			},
			[]string{"tier"},
		),
		cacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachebolt_cache_misses_total",
				Help: "Cache misses by tier (hot, durable)",
			},
			[]string{"tier"},
		),
		persistAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachebolt_persist_attempts_total",
				Help: "Durable store write attempts by backend",
			},
			[]string{"backend"},
		),
		persistErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachebolt_persist_errors_total",
				Help: "Durable store write failures by backend",
			},
			[]string{"backend"},
		),
		persistQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cachebolt_persist_queue_depth",
				Help: "Current number of entries queued for persistence",
			},
		),
		admissionRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cachebolt_admission_rejected_total",
				Help: "Requests rejected by the admission controller",
			},
		),
		latencyFailovers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachebolt_latency_failovers_total",
				Help: "Times a request failed over to cache due to latency breach",
			},
			[]string{"uri"},
		),
		bypassTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachebolt_bypass_total",
				Help: "Requests that bypassed the cache, by reason",
			},
			[]string{"reason"},
		),
		refreshTriggered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cachebolt_refresh_triggered_total",
				Help: "Times the probabilistic refresh sampler forced an origin fetch",
			},
		),
		evictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cachebolt_evictions_total",
				Help: "Entries evicted from the hot cache due to memory pressure",
			},
		),
	}

	prometheus.MustRegister(
		m.requestsTotal, m.requestDuration, m.activeConnections,
		m.cacheHitsTotal, m.cacheMissesTotal,
		m.persistAttempts, m.persistErrors, m.persistQueueDepth,
		m.admissionRejected, m.latencyFailovers, m.bypassTotal,
		m.refreshTriggered, m.evictionsTotal,
	)

	return m
}

func (m *Metrics) RecordRequest(method, statusCode, outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, statusCode, outcome).Inc()
	m.requestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

func (m *Metrics) IncrementConnections() { m.activeConnections.Inc() }
func (m *Metrics) DecrementConnections() { m.activeConnections.Dec() }

func (m *Metrics) CacheHit(tier string)  { m.cacheHitsTotal.WithLabelValues(tier).Inc() }
func (m *Metrics) CacheMiss(tier string) { m.cacheMissesTotal.WithLabelValues(tier).Inc() }

func (m *Metrics) PersistAttempt(backend string) { m.persistAttempts.WithLabelValues(backend).Inc() }
func (m *Metrics) PersistError(backend string)   { m.persistErrors.WithLabelValues(backend).Inc() }
func (m *Metrics) SetQueueDepth(n int)           { m.persistQueueDepth.Set(float64(n)) }

func (m *Metrics) AdmissionRejected() { m.admissionRejected.Inc() }
func (m *Metrics) LatencyFailover(uri string) { m.latencyFailovers.WithLabelValues(uri).Inc() }
func (m *Metrics) Bypass(reason string)       { m.bypassTotal.WithLabelValues(reason).Inc() }
func (m *Metrics) RefreshTriggered()          { m.refreshTriggered.Inc() }
func (m *Metrics) Eviction()                  { m.evictionsTotal.Inc() }

// Handler exposes the Prometheus exposition format for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware instruments every request with duration/status metrics,
// tagging the outcome the engine last set via SetOutcome on the request
// context ("hit", "miss", "bypass", "admission_rejected"). Failover and
// origin-error requests end up tagged "hit" or "miss" by the cache lookup
// that serves them.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.IncrementConnections()
		defer m.DecrementConnections()

		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		outcome := OutcomeFromContext(r.Context())
		m.RecordRequest(r.Method, strconv.Itoa(wrapper.statusCode), outcome, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}
