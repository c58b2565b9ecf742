package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

func TestMetricsLaunchSnapshot(t *testing.T) {
	m := newTestMetrics()

	m.RecordLaunch("native", "success", 250*time.Millisecond)
	m.RecordLaunch("native", "error", 100*time.Millisecond)
	m.RecordLaunch("web", "deduped", 5*time.Millisecond)

	report := m.Report()
	assert.Equal(t, int64(3), report.TotalLaunches)
	assert.Equal(t, int64(1), report.FailedLaunches)
	assert.Equal(t, int64(3), report.LaunchLatency.Count)
}

func TestMetricsHTTPErrorCounting(t *testing.T) {
	m := newTestMetrics()

	m.RecordHTTPRequest("GET", "/api/v1/instances", "200", 2*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/apps/:id/launch", "404", 1*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/apps/:id/launch", "504", 3*time.Millisecond)

	report := m.Report()
	assert.Equal(t, int64(3), report.TotalRequests)
	assert.Equal(t, int64(2), report.TotalErrors)
}

func TestMetricsInstanceStatesLiveCount(t *testing.T) {
	m := newTestMetrics()

	m.SetInstanceStates(map[string]int{
		"running":    2,
		"active":     1,
		"terminated": 5,
		"error":      1,
	})

	report := m.Report()
	assert.Equal(t, int64(3), report.LiveInstances)
}

func TestMetricsDiscoveryLatency(t *testing.T) {
	m := newTestMetrics()

	m.RecordDiscovery("native", 120*time.Millisecond)
	m.RecordDiscoveryTimeout("emulated")

	report := m.Report()
	assert.Equal(t, int64(1), report.DiscoveryLatency.Count)
	assert.InDelta(t, 120, report.DiscoveryLatency.Mean, 0.001)
}

func TestMetricsWSConnectionTracking(t *testing.T) {
	m := newTestMetrics()

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()

	report := m.Report()
	assert.Equal(t, int64(1), report.WSConnections)
}

func TestMetricsEventDropCounting(t *testing.T) {
	m := newTestMetrics()

	m.RecordEvent("instance.activated")
	m.RecordEventDropped("instance.state_changed")
	m.RecordEventDropped("instance.state_changed")

	report := m.Report()
	assert.Equal(t, int64(2), report.EventsDropped)
}

func TestMetricsCatalogGauge(t *testing.T) {
	m := newTestMetrics()

	m.SetCatalogApps(12)
	m.IncCatalogReloads()

	report := m.Report()
	assert.Equal(t, int64(12), report.CatalogAppCount)
	assert.Greater(t, report.UptimeSeconds, float64(0))
}
