// Package metrics provides Prometheus metrics for the proctor monitoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Detector pipeline
	detectorTicks        *prometheus.CounterVec
	detectorTickDuration *prometheus.HistogramVec
	detectorTickErrors   *prometheus.CounterVec
	eventsCreated        *prometheus.CounterVec
	subjectTransitions   *prometheus.CounterVec
	monitoringActive     prometheus.Gauge

	// Store
	storeOperationLatency *prometheus.HistogramVec
	storeErrors           *prometheus.CounterVec
	activeSubjects        prometheus.Gauge
	flaggedSubjects       prometheus.Gauge

	// Broadcast channel
	broadcastFrames   *prometheus.CounterVec
	observersPruned   prometheus.Counter
	observersActive   prometheus.Gauge
	observerQueueSize prometheus.Histogram

	// Submissions
	submissionsDuplicate prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // dedicated registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "proctor",
		subsystem:        "monitor",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.detectorTicks = m.counterVec("detector_ticks_total", "Detector ticks completed by source", "source")
	m.detectorTickDuration = m.histogramVec("detector_tick_duration_milliseconds", "Wall time of one detector tick", "source")
	m.detectorTickErrors = m.counterVec("detector_tick_errors_total", "Per-subject failures inside detector ticks", "source")
	m.eventsCreated = m.counterVec("events_created_total", "Events persisted by source and priority", "source", "priority")
	m.subjectTransitions = m.counterVec("subject_status_transitions_total", "Subject status changes", "from", "to")
	m.monitoringActive = m.gauge("monitoring_active", "1 while detector units are running")

	m.storeOperationLatency = m.histogramVec("store_operation_latency_milliseconds", "Entity store operation latency", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Entity store failures by operation", "operation")
	m.activeSubjects = m.gauge("active_subjects", "Active subjects in the last stats snapshot")
	m.flaggedSubjects = m.gauge("flagged_subjects", "Flagged subjects in the last stats snapshot")

	m.broadcastFrames = m.counterVec("broadcast_frames_total", "Notifications fanned out by kind", "kind")
	m.observersPruned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "observers_pruned_total", Help: "Observer connections dropped after a failed send",
	})
	m.observersActive = m.gauge("observers_active", "Currently connected live-channel observers")
	m.observerQueueSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "observer_queue_depth", Help: "Outbound queue depth sampled at enqueue",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	m.submissionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submissions_duplicate_total", Help: "Ad-hoc event submissions rejected as duplicates",
	})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordDetectorTick records one completed detector tick.
func RecordDetectorTick(source string, durationMs float64) {
	globalManager.detectorTicks.WithLabelValues(source).Inc()
	globalManager.detectorTickDuration.WithLabelValues(source).Observe(durationMs)
}

// RecordDetectorTickError counts a per-subject failure inside a tick.
func RecordDetectorTickError(source string) {
	globalManager.detectorTickErrors.WithLabelValues(source).Inc()
}

// RecordEventCreated counts a persisted event.
func RecordEventCreated(source, priority string) {
	globalManager.eventsCreated.WithLabelValues(source, priority).Inc()
}

// RecordSubjectTransition counts a subject status change.
func RecordSubjectTransition(from, to string) {
	if from == to {
		return
	}
	globalManager.subjectTransitions.WithLabelValues(from, to).Inc()
}

// UpdateMonitoringActive flips the monitoring gauge.
func UpdateMonitoringActive(active bool) {
	if active {
		globalManager.monitoringActive.Set(1)
		return
	}
	globalManager.monitoringActive.Set(0)
}

// RecordStoreOperation records the latency of one store call.
func RecordStoreOperation(operation string, latencyMs float64) {
	globalManager.storeOperationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store call.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateSubjectGauges publishes the latest population figures.
func UpdateSubjectGauges(active, flagged int) {
	globalManager.activeSubjects.Set(float64(active))
	globalManager.flaggedSubjects.Set(float64(flagged))
}

// RecordBroadcast counts one fanned-out notification.
func RecordBroadcast(kind string) {
	globalManager.broadcastFrames.WithLabelValues(kind).Inc()
}

// RecordObserverPruned counts an observer dropped by the hub.
func RecordObserverPruned() {
	globalManager.observersPruned.Inc()
}

// UpdateObserversActive publishes the number of connected observers.
func UpdateObserversActive(n int) {
	globalManager.observersActive.Set(float64(n))
}

// RecordObserverQueueDepth samples an observer queue depth.
func RecordObserverQueueDepth(depth int) {
	globalManager.observerQueueSize.Observe(float64(depth))
}

// RecordSubmissionDuplicate counts a duplicate ad-hoc submission.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage publishes heap allocation.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount publishes the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
