// Package metrics provides Prometheus metrics for the verdict assessment service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Assessment lifecycle
	transitions          *prometheus.CounterVec
	lifecycleViolations  *prometheus.CounterVec
	bandClassifications  *prometheus.CounterVec
	insightFindings      *prometheus.CounterVec
	assignmentsCreated   prometheus.Counter
	evaluationsPreviewed prometheus.Counter

	// Persistence collaborator
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Event pipeline
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueDropped            *prometheus.CounterVec
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	httpRateLimited     prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "verdict",
		subsystem:        "assessment",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.transitions = m.counterVec("transitions_total",
		"Lifecycle transitions by kind and outcome (ok, violation, persistence_error)", "transition", "outcome")
	m.lifecycleViolations = m.counterVec("lifecycle_violations_total",
		"Rejected lifecycle transitions by transition and current state", "transition", "state")
	m.bandClassifications = m.counterVec("band_classifications_total",
		"Performance bands assigned to persisted records", "band")
	m.insightFindings = m.counterVec("insight_findings_total",
		"Insight findings produced by polarity and subject kind", "polarity", "kind")
	m.assignmentsCreated = m.counter("assignments_created_total", "Assignments created")
	m.evaluationsPreviewed = m.counter("evaluations_previewed_total", "Stateless evaluate calls")

	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Persistence collaborator latency in milliseconds", "backend", "operation")
	m.storeErrors = m.counterVec("store_errors_total",
		"Persistence collaborator failures", "backend", "operation")

	m.queueSize = m.gauge("event_queue_size", "Lifecycle events waiting for the event log")
	m.queueCapacity = m.gauge("event_queue_capacity", "Configured lifecycle event queue capacity")
	m.queueEnqueued = m.counter("event_queue_enqueued_total", "Lifecycle events enqueued")
	m.queueDequeued = m.counter("event_queue_dequeued_total", "Lifecycle events dequeued")
	m.queueDropped = m.counterVec("event_queue_dropped_total", "Lifecycle events dropped", "reason")
	m.workerCount = m.gauge("event_worker_count", "Event log workers running")
	m.workerProcessingLatency = m.histogram("event_worker_latency_milliseconds",
		"Time to append one lifecycle event", m.histogramBuckets)
	m.workerErrors = m.counter("event_worker_errors_total", "Event log append failures")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total",
		"HTTP error responses by endpoint and error code", "endpoint", "code")
	m.httpRateLimited = m.counter("http_rate_limited_total", "Requests rejected by the rate limiter")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordTransition counts a lifecycle transition attempt by outcome.
func RecordTransition(transition, outcome string) {
	globalManager.transitions.WithLabelValues(transition, outcome).Inc()
}

// RecordLifecycleViolation counts a rejected transition.
func RecordLifecycleViolation(transition, state string) {
	globalManager.lifecycleViolations.WithLabelValues(transition, state).Inc()
}

// RecordBand counts a band assigned to a persisted record.
func RecordBand(band string) {
	globalManager.bandClassifications.WithLabelValues(band).Inc()
}

// RecordFindings adds n findings of the given polarity.
func RecordFindings(polarity, kind string, n int) {
	if n <= 0 {
		return
	}
	globalManager.insightFindings.WithLabelValues(polarity, kind).Add(float64(n))
}

// RecordAssignmentCreated increments the assignments counter.
func RecordAssignmentCreated() {
	globalManager.assignmentsCreated.Inc()
}

// RecordEvaluationPreviewed increments the evaluate counter.
func RecordEvaluationPreviewed() {
	globalManager.evaluationsPreviewed.Inc()
}

// RecordStoreLatency observes one persistence call.
func RecordStoreLatency(backend, operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// RecordStoreError counts one failed persistence call.
func RecordStoreError(backend, operation string) {
	globalManager.storeErrors.WithLabelValues(backend, operation).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueDrop counts an event that never reached the queue.
func RecordQueueDrop(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response by its API error code.
func RecordHTTPError(endpoint, code string) {
	globalManager.httpErrors.WithLabelValues(endpoint, code).Inc()
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited() {
	globalManager.httpRateLimited.Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
