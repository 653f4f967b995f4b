// Package metrics provides Prometheus metrics for the GreenGuardian proctoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the proctoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Integrity Metrics - What really matters for proctoring
	samplesIngested      prometheus.Counter
	samplesStale         prometheus.Counter
	samplesDuplicate     prometheus.Counter
	detectionsConfirmed  *prometheus.CounterVec
	detectionsSuppressed *prometheus.CounterVec
	violationsRecorded   *prometheus.CounterVec
	unknownTriggers      prometheus.Counter
	warningsIssued       prometheus.Counter
	finalScores          prometheus.Histogram
	sessionsFlagged      prometheus.Counter

	// Submission Metrics - Terminal write path
	submissions          *prometheus.CounterVec
	submissionRetries    prometheus.Counter
	duplicateSubmissions prometheus.Counter
	cameraStreamLost     prometheus.Counter

	// Operational Health Metrics
	activeSessions prometheus.Gauge
	watchedExams   prometheus.Gauge

	// Store Metrics - Persistence performance
	storeWriteLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram
	storeErrors       *prometheus.CounterVec

	// Notification Queue Metrics
	notifyQueueCapacity    prometheus.Gauge
	notifyQueueSize        prometheus.Gauge
	notifyQueueUtilization prometheus.Gauge
	notifyEnqueued         prometheus.Counter
	notifyDelivered        prometheus.Counter
	notifyDropped          prometheus.Counter

	// Event Writer Metrics - Async violation persistence
	eventWriterActive prometheus.Gauge
	eventWriteLatency prometheus.Histogram
	eventWriteErrors  prometheus.Counter
	eventWriteRetries prometheus.Counter

	// Observer Metrics - Live view delivery
	wsClients        prometheus.Gauge
	alertsEmitted    prometheus.Counter
	alertsSuppressed prometheus.Counter

	// Analysis Metrics - Post-submission document analysis
	analysisRequests *prometheus.CounterVec
	analysisLatency  prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "guardian",
		subsystem:        "proctor",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// scoreBuckets cover the full 0-100 behavior score range.
var scoreBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 65, 70, 75, 80, 85, 90, 95, 100} //nolint:gochecknoglobals // shared bucket layout

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Integrity Metrics - Focus on signal quality and confirmed violations
	m.samplesIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "samples_ingested_total",
		Help:      "Total number of detection samples consumed by session runtimes",
	})

	m.samplesStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "samples_stale_total",
		Help:      "Total number of detection cycles that found no fresh sample (camera stream health)",
	})

	m.samplesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "samples_duplicate_total",
		Help:      "Re-sent samples and triggers dropped by the idempotency cache",
	})

	m.detectionsConfirmed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detections_confirmed_total",
			Help:      "Debounced camera detections that crossed the consecutive-match threshold",
		},
		[]string{"condition"},
	)

	m.detectionsSuppressed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detections_suppressed_total",
			Help:      "Raw detections suppressed by the debouncer (below threshold or inside cooldown)",
		},
		[]string{"condition", "reason"},
	)

	m.violationsRecorded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "violations_recorded_total",
			Help:      "Confirmed violations recorded against sessions",
		},
		[]string{"kind", "severity"},
	)

	m.unknownTriggers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unknown_triggers_total",
		Help:      "Client triggers that matched no classification rule (audit only, never scored)",
	})

	m.warningsIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "warnings_issued_total",
		Help:      "Warnings raised toward the auto-submission limit",
	})

	m.finalScores = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "final_behavior_score",
		Help:      "Distribution of behavior scores at session finalization",
		Buckets:   scoreBuckets,
	})

	m.sessionsFlagged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_flagged_total",
		Help:      "Sessions finalized below the review threshold",
	})

	// Submission Metrics - Terminal write path
	m.submissions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "submissions_total",
			Help:      "Submission attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	m.submissionRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_retries_total",
		Help:      "Retried terminal writes after a persistence failure",
	})

	m.duplicateSubmissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_submissions_total",
		Help:      "Submission triggers rejected by the in-flight guard",
	})

	m.cameraStreamLost = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "camera_stream_lost_total",
		Help:      "Camera stream loss incidents detected via feed staleness",
	})

	// Operational Health Metrics - System stability indicators
	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Sessions currently running a proctoring loop",
	})

	m.watchedExams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "watched_exams",
		Help:      "Distinct exams with at least one active session",
	})

	// Store Metrics - Persistence performance
	m.storeWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_milliseconds",
		Help:      "Persistent store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Persistent store query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_errors_total",
			Help:      "Persistent store errors by operation",
		},
		[]string{"op"},
	)

	// Notification Queue Metrics
	m.notifyQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_capacity",
		Help:      "Maximum pending-notification queue capacity",
	})

	m.notifyQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_size",
		Help:      "Current pending-notification queue depth",
	})

	m.notifyQueueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_utilization_ratio",
		Help:      "Pending-notification queue utilization (depth / capacity)",
	})

	m.notifyEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_enqueued_total",
		Help:      "Notifications accepted into the pending queue",
	})

	m.notifyDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_delivered_total",
		Help:      "Notifications drained to subscribers",
	})

	m.notifyDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_dropped_total",
		Help:      "Notifications dropped because the pending queue was full",
	})

	// Event Writer Metrics - Async violation persistence
	m.eventWriterActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_writer_active_count",
		Help:      "Active violation-event writer workers",
	})

	m.eventWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_write_latency_milliseconds",
		Help:      "Violation-event append latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.eventWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_write_errors_total",
		Help:      "Violation-event appends that failed after retries",
	})

	m.eventWriteRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_write_retries_total",
		Help:      "Violation-event append retries",
	})

	// Observer Metrics - Live view delivery
	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_clients",
		Help:      "Connected observer WebSocket clients",
	})

	m.alertsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_emitted_total",
		Help:      "Critical-risk alerts delivered to observers",
	})

	m.alertsSuppressed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_suppressed_total",
		Help:      "Critical-risk alerts withheld by the rate limiter",
	})

	// Analysis Metrics - Post-submission document analysis
	m.analysisRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analysis_requests_total",
			Help:      "Document analysis requests by outcome",
		},
		[]string{"status"},
	)

	m.analysisLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analysis_latency_milliseconds",
		Help:      "Document analysis round-trip latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics - Detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordSampleIngested increments the ingested-samples counter.
func RecordSampleIngested() {
	globalManager.samplesIngested.Inc()
}

// RecordSampleStale increments the stale-cycle counter.
func RecordSampleStale() {
	globalManager.samplesStale.Inc()
}

// RecordSampleDuplicate counts a re-sent sample or trigger dropped by
// the idempotency cache.
func RecordSampleDuplicate() {
	globalManager.samplesDuplicate.Inc()
}

// RecordDetectionConfirmed counts a debouncer-confirmed detection.
func RecordDetectionConfirmed(condition string) {
	globalManager.detectionsConfirmed.WithLabelValues(condition).Inc()
}

// RecordDetectionSuppressed counts a suppressed raw detection.
// Reason is "below-threshold" or "cooldown".
func RecordDetectionSuppressed(condition, reason string) {
	globalManager.detectionsSuppressed.WithLabelValues(condition, reason).Inc()
}

// RecordViolation counts a confirmed, scored violation.
func RecordViolation(kind, severity string) {
	globalManager.violationsRecorded.WithLabelValues(kind, severity).Inc()
}

// RecordUnknownTrigger counts an unclassifiable client trigger.
func RecordUnknownTrigger() {
	globalManager.unknownTriggers.Inc()
}

// RecordWarningIssued increments the warnings counter.
func RecordWarningIssued() {
	globalManager.warningsIssued.Inc()
}

// RecordFinalScore records a behavior score at finalization.
func RecordFinalScore(score int) {
	globalManager.finalScores.Observe(float64(score))
}

// RecordSessionFlagged counts a session flagged for review.
func RecordSessionFlagged() {
	globalManager.sessionsFlagged.Inc()
}

// RecordSubmission counts a submission attempt.
// Trigger is "manual", "timer" or "warnings"; outcome is "submitted",
// "auto_submitted" or "failed".
func RecordSubmission(trigger, outcome string) {
	globalManager.submissions.WithLabelValues(trigger, outcome).Inc()
}

// RecordSubmissionRetry increments the terminal-write retry counter.
func RecordSubmissionRetry() {
	globalManager.submissionRetries.Inc()
}

// RecordDuplicateSubmission counts a trigger rejected by the guard.
func RecordDuplicateSubmission() {
	globalManager.duplicateSubmissions.Inc()
}

// RecordCameraStreamLost counts a camera stream loss incident.
func RecordCameraStreamLost() {
	globalManager.cameraStreamLost.Inc()
}

// UpdateActiveSessions sets the active session gauge.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// UpdateWatchedExams sets the watched exam gauge.
func UpdateWatchedExams(count int) {
	globalManager.watchedExams.Set(float64(count))
}

// Store Metrics Functions.

// RecordStoreWriteLatency records store write latency.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records store query latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordStoreError counts a store error for the given operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// Notification Queue Metrics Functions.

// UpdateNotifyQueueCapacity sets the pending queue capacity.
func UpdateNotifyQueueCapacity(capacity int) {
	globalManager.notifyQueueCapacity.Set(float64(capacity))
}

// UpdateNotifyQueueSize sets the pending queue depth.
func UpdateNotifyQueueSize(size int) {
	globalManager.notifyQueueSize.Set(float64(size))
}

// UpdateNotifyQueueUtilization sets the pending queue utilization ratio.
func UpdateNotifyQueueUtilization(utilization float64) {
	globalManager.notifyQueueUtilization.Set(utilization)
}

// RecordNotifyEnqueued counts an accepted notification.
func RecordNotifyEnqueued() {
	globalManager.notifyEnqueued.Inc()
}

// RecordNotifyDelivered counts a drained notification.
func RecordNotifyDelivered() {
	globalManager.notifyDelivered.Inc()
}

// RecordNotifyDropped counts a notification dropped on a full queue.
func RecordNotifyDropped() {
	globalManager.notifyDropped.Inc()
}

// Event Writer Metrics Functions.

// UpdateEventWriterActive sets the active event-writer gauge.
func UpdateEventWriterActive(count int) {
	globalManager.eventWriterActive.Set(float64(count))
}

// RecordEventWriteLatency records a violation-event append latency.
func RecordEventWriteLatency(latencyMs float64) {
	globalManager.eventWriteLatency.Observe(latencyMs)
}

// RecordEventWriteError counts a failed violation-event append.
func RecordEventWriteError() {
	globalManager.eventWriteErrors.Inc()
}

// RecordEventWriteRetry counts a violation-event append retry.
func RecordEventWriteRetry() {
	globalManager.eventWriteRetries.Inc()
}

// Observer Metrics Functions.

// UpdateWSClients sets the connected observer client gauge.
func UpdateWSClients(count int) {
	globalManager.wsClients.Set(float64(count))
}

// RecordAlertEmitted counts a delivered critical alert.
func RecordAlertEmitted() {
	globalManager.alertsEmitted.Inc()
}

// RecordAlertSuppressed counts a rate-limited critical alert.
func RecordAlertSuppressed() {
	globalManager.alertsSuppressed.Inc()
}

// Analysis Metrics Functions.

// RecordAnalysisRequest counts an analysis request by status
// ("ok", "error", "open_circuit").
func RecordAnalysisRequest(status string) {
	globalManager.analysisRequests.WithLabelValues(status).Inc()
}

// RecordAnalysisLatency records document analysis latency.
func RecordAnalysisLatency(latencyMs float64) {
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

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
