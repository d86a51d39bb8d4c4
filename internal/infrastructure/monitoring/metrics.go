package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "termhost"

// Metrics holds all Prometheus metrics. Each instance owns its registry, so
// several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated *prometheus.CounterVec
	SessionExits    *prometheus.CounterVec
	SpawnFailures   *prometheus.CounterVec
	SessionBytes    *prometheus.CounterVec

	// One-shot execution metrics
	ExecRuns     *prometheus.CounterVec
	ExecDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the health endpoint.
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	SessionsCreated   int64   `json:"sessions_created"`
	SpawnFailures     int64   `json:"spawn_failures"`
	ActiveConnections int64   `json:"active_connections"`
	ExecRuns          int64   `json:"exec_runs"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector with its own registry, including the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of live terminal sessions",
			},
		),
		SessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Total number of terminal sessions started, by backend tier",
			},
			[]string{"backend"},
		),
		SessionExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_exits_total",
				Help:      "Total number of terminal session exits, by reason",
			},
			[]string{"reason"},
		),
		SpawnFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spawn_failures_total",
				Help:      "Total number of failed spawn attempts, by backend tier",
			},
			[]string{"backend"},
		),
		SessionBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_bytes_total",
				Help:      "Bytes moved through terminal sessions",
			},
			[]string{"direction"},
		),

		// One-shot execution metrics
		ExecRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exec_runs_total",
				Help:      "Total number of one-shot commands, by outcome",
			},
			[]string{"status"},
		),
		ExecDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exec_duration_seconds",
				Help:      "One-shot command duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this collector.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SessionStarted counts a session that reached running on backend.
func (m *Metrics) SessionStarted(backend string) {
	m.SessionsCreated.WithLabelValues(backend).Inc()
	m.SessionsActive.Inc()

	m.mu.Lock()
	m.snapshot.SessionsCreated++
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionExited counts a session exit. backend is empty for sessions that
// never got a backend, which were never counted as active.
func (m *Metrics) SessionExited(backend, reason string) {
	m.SessionExits.WithLabelValues(reason).Inc()
	if backend == "" {
		return
	}
	m.SessionsActive.Dec()

	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// SpawnFailed counts a failed attempt on one backend tier.
func (m *Metrics) SpawnFailed(backend string) {
	m.SpawnFailures.WithLabelValues(backend).Inc()

	m.mu.Lock()
	m.snapshot.SpawnFailures++
	m.mu.Unlock()
}

// BytesTransferred counts session traffic; direction is "in" or "out".
func (m *Metrics) BytesTransferred(direction string, n int) {
	m.SessionBytes.WithLabelValues(direction).Add(float64(n))
}

// ExecFinished records a one-shot command outcome.
func (m *Metrics) ExecFinished(status string, d time.Duration) {
	m.ExecRuns.WithLabelValues(status).Inc()
	m.ExecDuration.Observe(d.Seconds())

	m.mu.Lock()
	m.snapshot.ExecRuns++
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for JSON consumers.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
