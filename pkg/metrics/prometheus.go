// Package metrics provides Prometheus metrics for the TechGames service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Identity and provisioning
	oauthResolutions    *prometheus.CounterVec
	forkRequests        *prometheus.CounterVec
	accountsProvisioned *prometheus.CounterVec
	outboundLatency     *prometheus.HistogramVec

	// Ledger
	scoreEvents         prometheus.Counter
	orphanedScoreEvents prometheus.Counter
	duplicateSubmits    prometheus.Counter
	scoreOutcomesPassed prometheus.Histogram

	// Storage
	directoryOps     *prometheus.CounterVec
	directoryLatency *prometheus.HistogramVec
	accountsTotal    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics singleton

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // metrics must exist before handlers run
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "techgames",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.oauthResolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oauth_resolutions_total",
		Help:      "OAuth callbacks by outcome (existing, provisioned, invalid_credential, error)",
	}, []string{"outcome"})

	m.forkRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "template_forks_total",
		Help:      "Template repository fork attempts by result (ok, rejected, skipped)",
	}, []string{"result"})

	m.accountsProvisioned = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accounts_provisioned_total",
		Help:      "Accounts persisted by creation path (oauth, direct)",
	}, []string{"origin"})

	m.outboundLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outbound_request_duration_milliseconds",
		Help:      "Latency of calls to the external provider by call and result",
		Buckets:   m.histogramBuckets,
	}, []string{"call", "result"})

	m.scoreEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_events_total",
		Help:      "Score events written to the ledger",
	})

	m.orphanedScoreEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_orphaned_events_total",
		Help:      "Score events written whose account reference could not be appended",
	})

	m.duplicateSubmits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_duplicate_submissions_total",
		Help:      "Score submissions rejected because their idempotency key was already seen",
	})

	m.scoreOutcomesPassed = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_outcomes_passed",
		Help:      "Number of passing outcome flags per recorded score event",
		Buckets:   prometheus.LinearBuckets(0, 3, 8),
	})

	m.directoryOps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "directory_operations_total",
		Help:      "Storage operations by entity, operation and result",
	}, []string{"entity", "op", "result"})

	m.directoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "directory_operation_duration_milliseconds",
		Help:      "Storage operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"entity", "op"})

	m.accountsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accounts",
		Help:      "Number of accounts in the directory at last scan",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP error responses by endpoint, method and error class",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average GC pause in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordOAuthResolution counts one OAuth callback outcome.
func RecordOAuthResolution(outcome string) {
	globalManager.oauthResolutions.WithLabelValues(outcome).Inc()
}

// RecordFork counts one fork attempt (ok, rejected) or a skipped fork.
func RecordFork(result string) {
	globalManager.forkRequests.WithLabelValues(result).Inc()
}

// RecordAccountProvisioned counts a persisted account by origin.
func RecordAccountProvisioned(origin string) {
	globalManager.accountsProvisioned.WithLabelValues(origin).Inc()
}

// RecordOutboundLatency records an external provider call.
func RecordOutboundLatency(call, result string, latencyMs float64) {
	globalManager.outboundLatency.WithLabelValues(call, result).Observe(latencyMs)
}

// RecordScoreEvent counts a ledger write and how many outcomes passed.
func RecordScoreEvent(passed int) {
	globalManager.scoreEvents.Inc()
	globalManager.scoreOutcomesPassed.Observe(float64(passed))
}

// RecordOrphanedScoreEvent counts a ledger write left unreferenced.
func RecordOrphanedScoreEvent() {
	globalManager.orphanedScoreEvents.Inc()
}

// RecordDuplicateSubmission counts a rejected replay of a score submission.
func RecordDuplicateSubmission() {
	globalManager.duplicateSubmits.Inc()
}

// RecordDirectoryOperation counts and times one storage operation.
func RecordDirectoryOperation(entity, op, result string, latencyMs float64) {
	globalManager.directoryOps.WithLabelValues(entity, op, result).Inc()
	globalManager.directoryLatency.WithLabelValues(entity, op).Observe(latencyMs)
}

// UpdateAccountsTotal sets the account gauge.
func UpdateAccountsTotal(count int) {
	globalManager.accountsTotal.Set(float64(count))
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP latency.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint counts an error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served at /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
