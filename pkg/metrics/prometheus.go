package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the session engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Polling
	polls                  *prometheus.CounterVec
	pollLatency            *prometheus.HistogramVec
	pollConsecutiveFailure *prometheus.GaugeVec

	// Drawing and host duties
	draws            *prometheus.CounterVec
	autoDrawState    *prometheus.GaugeVec
	takeoverAttempts *prometheus.CounterVec

	// Player actions
	winChecks     *prometheus.CounterVec
	claims        *prometheus.CounterVec
	registrations *prometheus.CounterVec

	// Session loop
	activeSessions prometheus.Gauge
	loopQueueSize  *prometheus.GaugeVec
	eventsEmitted  *prometheus.CounterVec
	publishes      *prometheus.CounterVec

	// Transport
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	backendCallDuration *prometheus.HistogramVec
	requestsDeduped     prometheus.Counter

	// Process
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
		namespace:        "bingo",
		subsystem:        "session",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.polls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "polls_total",
		Help:      "Poll cycles by poller and result (ok, failed, stale, rejected)",
	}, []string{"poller", "result"})

	m.pollLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_latency_milliseconds",
		Help:      "Latency of a single poll fetch in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"poller"})

	m.pollConsecutiveFailure = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_consecutive_failures",
		Help:      "Current run of consecutive failed polls",
	}, []string{"poller"})

	m.draws = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "draws_total",
		Help:      "Draw requests by trigger (auto, manual) and result (ok, failed, game_over)",
	}, []string{"trigger", "result"})

	m.autoDrawState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "autodraw_state",
		Help:      "Auto-draw state per game (0 idle, 1 scheduled, 2 drawing)",
	}, []string{"game"})

	m.takeoverAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "takeover_attempts_total",
		Help:      "Host takeover attempts by outcome",
	}, []string{"outcome"})

	m.winChecks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "win_checks_total",
		Help:      "Win checks by result (won, not_won, already_won, error)",
	}, []string{"result"})

	m.claims = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "claims_total",
		Help:      "Winnings claims by outcome",
	}, []string{"outcome"})

	m.registrations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registrations_total",
		Help:      "Game registrations by outcome",
	}, []string{"outcome"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Number of running game sessions",
	})

	m.loopQueueSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "loop_queue_size",
		Help:      "Pending tasks in a session loop",
	}, []string{"loop"})

	m.eventsEmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_emitted_total",
		Help:      "Session trigger events by kind",
	}, []string{"kind"})

	m.publishes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publishes_total",
		Help:      "Session events published to the message bus by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.backendCallDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backend_call_duration_milliseconds",
		Help:      "Backend client call latency by operation and result",
		Buckets:   m.histogramBuckets,
	}, []string{"operation", "result"})

	m.requestsDeduped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_deduplicated_total",
		Help:      "Mutating requests answered from the request-ID cache",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap memory in use in bytes",
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
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordPoll counts one poll cycle outcome.
func RecordPoll(poller, result string) {
	globalManager.polls.WithLabelValues(poller, result).Inc()
}

// RecordPollLatency records fetch latency in milliseconds.
func RecordPollLatency(poller string, latencyMs float64) {
	globalManager.pollLatency.WithLabelValues(poller).Observe(latencyMs)
}

// UpdatePollConsecutiveFailures sets the current failure run length.
func UpdatePollConsecutiveFailures(poller string, n int) {
	globalManager.pollConsecutiveFailure.WithLabelValues(poller).Set(float64(n))
}

// RecordDraw counts a draw attempt.
func RecordDraw(trigger, result string) {
	globalManager.draws.WithLabelValues(trigger, result).Inc()
}

// UpdateAutoDrawState sets the scheduler state for a game.
func UpdateAutoDrawState(game string, state int) {
	globalManager.autoDrawState.WithLabelValues(game).Set(float64(state))
}

// RecordTakeoverAttempt counts a host takeover attempt.
func RecordTakeoverAttempt(outcome string) {
	globalManager.takeoverAttempts.WithLabelValues(outcome).Inc()
}

// RecordWinCheck counts a win check.
func RecordWinCheck(result string) {
	globalManager.winChecks.WithLabelValues(result).Inc()
}

// RecordClaim counts a claim attempt.
func RecordClaim(outcome string) {
	globalManager.claims.WithLabelValues(outcome).Inc()
}

// RecordRegistration counts a registration attempt.
func RecordRegistration(outcome string) {
	globalManager.registrations.WithLabelValues(outcome).Inc()
}

// IncActiveSessions marks a session as started.
func IncActiveSessions() {
	globalManager.activeSessions.Inc()
}

// DecActiveSessions marks a session as stopped.
func DecActiveSessions() {
	globalManager.activeSessions.Dec()
}

// UpdateLoopQueueSize sets the pending task count of a loop.
func UpdateLoopQueueSize(loop string, size int) {
	globalManager.loopQueueSize.WithLabelValues(loop).Set(float64(size))
}

// RecordEvent counts an emitted session event.
func RecordEvent(kind string) {
	globalManager.eventsEmitted.WithLabelValues(kind).Inc()
}

// RecordPublish counts a bus publish.
func RecordPublish(result string) {
	globalManager.publishes.WithLabelValues(result).Inc()
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordBackendCall records a backend client call latency in milliseconds.
func RecordBackendCall(operation, result string, latencyMs float64) {
	globalManager.backendCallDuration.WithLabelValues(operation, result).Observe(latencyMs)
}

// RecordRequestDeduplicated counts a replayed mutating request.
func RecordRequestDeduplicated() {
	globalManager.requestsDeduped.Inc()
}

// UpdateSystemMemoryUsage sets heap memory in use.
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
