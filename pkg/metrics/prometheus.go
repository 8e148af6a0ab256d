// Package metrics provides Prometheus metrics for the levelrank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the levelrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Moderation Metrics - What moves the ranked state
	submissionsCreated *prometheus.CounterVec
	approvals          *prometheus.CounterVec
	rejections         prometheus.Counter
	withdrawals        prometheus.Counter
	pointsAwarded      prometheus.Counter
	pointsReversed     prometheus.Counter
	levelChanges       *prometheus.CounterVec

	// Title and Ban Metrics
	titleEquips  *prometheus.CounterVec
	titleResets  prometheus.Counter
	bans         *prometheus.CounterVec
	unbans       prometheus.Counter
	banExpiries  prometheus.Counter
	auditEvents  prometheus.Counter
	totalUsers   prometheus.Gauge
	totalLevels  prometheus.Gauge
	pendingQueue prometheus.Gauge

	// Store Metrics - Whole-collection reads and writes
	storeLoadLatency *prometheus.HistogramVec
	storeSaveLatency *prometheus.HistogramVec
	storeConflicts   *prometheus.CounterVec

	// Command Queue Metrics - Single writer
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	commandLatency     *prometheus.HistogramVec
	commandErrors      *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "levelrank",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.submissionsCreated = auto.NewCounterVec(m.counterOpts("submissions_created_total", "Submissions entering the pending queue"), []string{"type"})
	m.approvals = auto.NewCounterVec(m.counterOpts("approvals_total", "Submissions approved by moderators, by outcome"), []string{"type", "outcome"})
	m.rejections = auto.NewCounter(m.counterOpts("rejections_total", "Submissions rejected by moderators"))
	m.withdrawals = auto.NewCounter(m.counterOpts("withdrawals_total", "Pending submissions withdrawn by their submitter"))
	m.pointsAwarded = auto.NewCounter(m.counterOpts("points_awarded_total", "Points granted by completion approvals"))
	m.pointsReversed = auto.NewCounter(m.counterOpts("points_reversed_total", "Points removed by completion deletions"))
	m.levelChanges = auto.NewCounterVec(m.counterOpts("level_changes_total", "Ranking edits by kind"), []string{"kind"})

	m.titleEquips = auto.NewCounterVec(m.counterOpts("title_equips_total", "Title equip requests by result"), []string{"result"})
	m.titleResets = auto.NewCounter(m.counterOpts("title_resets_total", "Equipped titles reset after losing eligibility"))
	m.bans = auto.NewCounterVec(m.counterOpts("bans_total", "Bans issued by kind"), []string{"kind"})
	m.unbans = auto.NewCounter(m.counterOpts("unbans_total", "Bans lifted by moderators"))
	m.banExpiries = auto.NewCounter(m.counterOpts("ban_expiries_total", "Expired bans cleared lazily on read"))
	m.auditEvents = auto.NewCounter(m.counterOpts("audit_events_total", "Audit events appended"))
	m.totalUsers = auto.NewGauge(m.gaugeOpts("users", "Registered users"))
	m.totalLevels = auto.NewGauge(m.gaugeOpts("levels", "Published levels"))
	m.pendingQueue = auto.NewGauge(m.gaugeOpts("pending_submissions", "Submissions awaiting review"))

	m.storeLoadLatency = auto.NewHistogramVec(m.histogramOpts("store_load_latency_milliseconds", "Collection load latency in milliseconds", m.histogramBuckets), []string{"collection"})
	m.storeSaveLatency = auto.NewHistogramVec(m.histogramOpts("store_save_latency_milliseconds", "Collection save latency in milliseconds", m.histogramBuckets), []string{"collection"})
	m.storeConflicts = auto.NewCounterVec(m.counterOpts("store_conflicts_total", "Saves rejected because the collection version moved"), []string{"collection"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("command_queue_size", "Commands waiting for the writer"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("command_queue_capacity", "Maximum command queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("command_queue_utilization_ratio", "Command queue utilization ratio (size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("command_queue_enqueue_total", "Commands enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("command_queue_dequeue_total", "Commands dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("command_queue_enqueue_errors_total", "Commands refused by the queue"))
	m.commandLatency = auto.NewHistogramVec(m.histogramOpts("command_latency_milliseconds", "Writer command execution latency in milliseconds", m.histogramBuckets), []string{"command"})
	m.commandErrors = auto.NewCounterVec(m.counterOpts("command_errors_total", "Writer commands that returned an error"), []string{"command"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Total number of errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Total number of errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Moderation Metrics Functions.

// RecordSubmissionCreated increments the submissions counter for a type.
func RecordSubmissionCreated(kind string) {
	globalManager.submissionsCreated.WithLabelValues(kind).Inc()
}

// RecordApproval increments the approvals counter for a type and outcome.
func RecordApproval(kind, outcome string) {
	globalManager.approvals.WithLabelValues(kind, outcome).Inc()
}

// RecordRejection increments the rejections counter.
func RecordRejection() {
	globalManager.rejections.Inc()
}

// RecordWithdrawal increments the withdrawals counter.
func RecordWithdrawal() {
	globalManager.withdrawals.Inc()
}

// RecordPointsAwarded adds to the awarded points counter.
func RecordPointsAwarded(points int) {
	if points > 0 {
		globalManager.pointsAwarded.Add(float64(points))
	}
}

// RecordPointsReversed adds to the reversed points counter.
func RecordPointsReversed(points int) {
	if points > 0 {
		globalManager.pointsReversed.Add(float64(points))
	}
}

// RecordLevelChange increments the ranking edit counter (remove, move, tags).
func RecordLevelChange(kind string) {
	globalManager.levelChanges.WithLabelValues(kind).Inc()
}

// Title and Ban Metrics Functions.

// RecordTitleEquip increments the equip counter (equip, unequip, rejected).
func RecordTitleEquip(result string) {
	globalManager.titleEquips.WithLabelValues(result).Inc()
}

// RecordTitleReset increments the stale title reset counter.
func RecordTitleReset() {
	globalManager.titleResets.Inc()
}

// RecordBan increments the bans counter (timed, permanent).
func RecordBan(kind string) {
	globalManager.bans.WithLabelValues(kind).Inc()
}

// RecordUnban increments the unbans counter.
func RecordUnban() {
	globalManager.unbans.Inc()
}

// RecordBanExpiry increments the lazy ban expiry counter.
func RecordBanExpiry() {
	globalManager.banExpiries.Inc()
}

// RecordAuditEvents adds appended audit events.
func RecordAuditEvents(n int) {
	if n > 0 {
		globalManager.auditEvents.Add(float64(n))
	}
}

// UpdateTotalUsers sets the registered users gauge.
func UpdateTotalUsers(count int) {
	globalManager.totalUsers.Set(float64(count))
}

// UpdateTotalLevels sets the published levels gauge.
func UpdateTotalLevels(count int) {
	globalManager.totalLevels.Set(float64(count))
}

// UpdatePendingSubmissions sets the pending review gauge.
func UpdatePendingSubmissions(count int) {
	globalManager.pendingQueue.Set(float64(count))
}

// Store Metrics Functions.

// RecordStoreLoadLatency records a collection load latency.
func RecordStoreLoadLatency(collection string, latencyMs float64) {
	globalManager.storeLoadLatency.WithLabelValues(collection).Observe(latencyMs)
}

// RecordStoreSaveLatency records a collection save latency.
func RecordStoreSaveLatency(collection string, latencyMs float64) {
	globalManager.storeSaveLatency.WithLabelValues(collection).Observe(latencyMs)
}

// RecordStoreConflict increments the version conflict counter for a collection.
func RecordStoreConflict(collection string) {
	globalManager.storeConflicts.WithLabelValues(collection).Inc()
}

// Command Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordCommandLatency records how long the writer spent on a command.
func RecordCommandLatency(command string, latencyMs float64) {
	globalManager.commandLatency.WithLabelValues(command).Observe(latencyMs)
}

// RecordCommandError increments the failed command counter.
func RecordCommandError(command string) {
	globalManager.commandErrors.WithLabelValues(command).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
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
