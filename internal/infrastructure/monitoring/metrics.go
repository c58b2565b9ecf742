package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Launch metrics
	LaunchesTotal  *prometheus.CounterVec
	LaunchDuration *prometheus.HistogramVec

	// Window discovery metrics
	DiscoveryDuration *prometheus.HistogramVec
	DiscoveryTimeouts *prometheus.CounterVec

	// Instance metrics
	InstancesByState *prometheus.GaugeVec
	InstancesTotal   prometheus.Counter

	// Lifecycle operation metrics
	SwitchesTotal     *prometheus.CounterVec
	TerminationsTotal *prometheus.CounterVec

	// Poller metrics
	PollCycles   prometheus.Counter
	PollDuration prometheus.Histogram

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Window agent client metrics
	AgentCalls        *prometheus.CounterVec
	AgentCallDuration *prometheus.HistogramVec

	// Catalog metrics
	CatalogApps    prometheus.Gauge
	CatalogReloads prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot  Snapshot
	latencies *LatencyAggregator

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests   int64 `json:"total_requests"`
	TotalErrors     int64 `json:"total_errors"`
	TotalLaunches   int64 `json:"total_launches"`
	FailedLaunches  int64 `json:"failed_launches"`
	LiveInstances   int64 `json:"live_instances"`
	WSConnections   int64 `json:"ws_connections"`
	EventsDropped   int64 `json:"events_dropped"`
	CatalogAppCount int64 `json:"catalog_app_count"`
}

// NewMetrics creates a metrics collector on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide collector on the global registry.
// Repeated calls share one instance, so building a second engine in the
// same process cannot double-register collectors.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetricsWith creates a metrics collector on the given registry.
// Tests pass a fresh registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),
		latencies: NewLatencyAggregator(DefaultLatencyWindow),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Launch metrics
		LaunchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_launches_total",
				Help: "Total number of launch attempts",
			},
			[]string{"category", "status"},
		),
		LaunchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_launch_duration_seconds",
				Help:    "Launch duration from request to registration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"category"},
		),

		// Window discovery metrics
		DiscoveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_window_discovery_duration_seconds",
				Help:    "Window correlation duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"category"},
		),
		DiscoveryTimeouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_window_discovery_timeouts_total",
				Help: "Total number of window discoveries that hit the init timeout",
			},
			[]string{"category"},
		),

		// Instance metrics
		InstancesByState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "launcher_instances",
				Help: "Number of tracked instances by state",
			},
			[]string{"state"},
		),
		InstancesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_instances_created_total",
				Help: "Total number of instances ever registered",
			},
		),

		// Lifecycle operation metrics
		SwitchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_switches_total",
				Help: "Total number of switch-to operations",
			},
			[]string{"result"},
		),
		TerminationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_terminations_total",
				Help: "Total number of terminate operations",
			},
			[]string{"result"},
		),

		// Poller metrics
		PollCycles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_poll_cycles_total",
				Help: "Total number of liveness poll cycles",
			},
		),
		PollDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_poll_duration_seconds",
				Help:    "Liveness poll cycle duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),

		// Event metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_events_published_total",
				Help: "Total number of lifecycle events published",
			},
			[]string{"type"},
		),
		EventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_events_dropped_total",
				Help: "Total number of events dropped on slow subscribers",
			},
			[]string{"type"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// Window agent client metrics
		AgentCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_agent_calls_total",
				Help: "Total number of window agent calls",
			},
			[]string{"op", "status"},
		),
		AgentCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_agent_call_duration_seconds",
				Help:    "Window agent call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
			},
			[]string{"op"},
		),

		// Catalog metrics
		CatalogApps: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_catalog_apps",
				Help: "Number of applications in the catalog",
			},
		),
		CatalogReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_catalog_reloads_total",
				Help: "Total number of catalog reloads",
			},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_uptime_seconds",
				Help: "Launcher daemon uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordLaunch records a launch attempt and its duration
func (m *Metrics) RecordLaunch(category, status string, duration time.Duration) {
	m.LaunchesTotal.WithLabelValues(category, status).Inc()
	m.LaunchDuration.WithLabelValues(category).Observe(duration.Seconds())
	m.latencies.RecordLaunch(duration)

	m.mu.Lock()
	m.snapshot.TotalLaunches++
	if status == "error" || status == "denied" {
		m.snapshot.FailedLaunches++
	}
	m.mu.Unlock()
}

// RecordDiscovery records a completed window discovery
func (m *Metrics) RecordDiscovery(category string, duration time.Duration) {
	m.DiscoveryDuration.WithLabelValues(category).Observe(duration.Seconds())
	m.latencies.RecordDiscovery(duration)
}

// RecordDiscoveryTimeout records a discovery that hit the init timeout
func (m *Metrics) RecordDiscoveryTimeout(category string) {
	m.DiscoveryTimeouts.WithLabelValues(category).Inc()
}

// RecordSwitch records a switch-to result
func (m *Metrics) RecordSwitch(result string) {
	m.SwitchesTotal.WithLabelValues(result).Inc()
}

// RecordTermination records a terminate result
func (m *Metrics) RecordTermination(result string) {
	m.TerminationsTotal.WithLabelValues(result).Inc()
}

// RecordPollCycle records a completed poll cycle
func (m *Metrics) RecordPollCycle(duration time.Duration) {
	m.PollCycles.Inc()
	m.PollDuration.Observe(duration.Seconds())
}

// RecordEvent records a published lifecycle event
func (m *Metrics) RecordEvent(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventDropped records an event dropped on a slow subscriber
func (m *Metrics) RecordEventDropped(eventType string) {
	m.EventsDropped.WithLabelValues(eventType).Inc()

	m.mu.Lock()
	m.snapshot.EventsDropped++
	m.mu.Unlock()
}

// RecordAgentCall records a window agent call
func (m *Metrics) RecordAgentCall(op, status string, duration time.Duration) {
	m.AgentCalls.WithLabelValues(op, status).Inc()
	m.AgentCallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetInstanceStates replaces the per-state instance gauges
func (m *Metrics) SetInstanceStates(byState map[string]int) {
	m.InstancesByState.Reset()
	live := int64(0)
	for state, count := range byState {
		m.InstancesByState.WithLabelValues(state).Set(float64(count))
		if state != "terminated" && state != "error" {
			live += int64(count)
		}
	}

	m.mu.Lock()
	m.snapshot.LiveInstances = live
	m.mu.Unlock()
}

// IncInstancesTotal increments the created-instances counter
func (m *Metrics) IncInstancesTotal() {
	m.InstancesTotal.Inc()
}

// SetCatalogApps sets the catalog size gauge
func (m *Metrics) SetCatalogApps(count int) {
	m.CatalogApps.Set(float64(count))

	m.mu.Lock()
	m.snapshot.CatalogAppCount = int64(count)
	m.mu.Unlock()
}

// IncCatalogReloads increments the catalog reload counter
func (m *Metrics) IncCatalogReloads() {
	m.CatalogReloads.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()

	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()

	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}
