package monitoring

import "time"

// SnapshotReport is the payload served by the JSON metrics endpoint.
type SnapshotReport struct {
	Snapshot
	UptimeSeconds    float64        `json:"uptime_seconds"`
	LaunchLatency    LatencySummary `json:"launch_latency"`
	DiscoveryLatency LatencySummary `json:"discovery_latency"`
}

// Report returns current counters plus latency summaries for the JSON API.
func (m *Metrics) Report() SnapshotReport {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	return SnapshotReport{
		Snapshot:         snap,
		UptimeSeconds:    time.Since(m.startTime).Seconds(),
		LaunchLatency:    m.latencies.Launch(),
		DiscoveryLatency: m.latencies.Discovery(),
	}
}
