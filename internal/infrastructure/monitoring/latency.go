package monitoring

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultLatencyWindow is the number of recent samples kept per series.
const DefaultLatencyWindow = 512

// LatencySummary holds aggregate latency statistics in milliseconds.
type LatencySummary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean_ms"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
}

// LatencyAggregator keeps a sliding window of launch and discovery
// latencies and computes summary statistics on demand.
type LatencyAggregator struct {
	mu        sync.Mutex
	launch    *ring
	discovery *ring
}

// NewLatencyAggregator creates an aggregator keeping window samples per series.
func NewLatencyAggregator(window int) *LatencyAggregator {
	if window <= 0 {
		window = DefaultLatencyWindow
	}
	return &LatencyAggregator{
		launch:    newRing(window),
		discovery: newRing(window),
	}
}

// RecordLaunch adds a launch latency sample.
func (a *LatencyAggregator) RecordLaunch(d time.Duration) {
	a.mu.Lock()
	a.launch.push(float64(d.Milliseconds()))
	a.mu.Unlock()
}

// RecordDiscovery adds a window discovery latency sample.
func (a *LatencyAggregator) RecordDiscovery(d time.Duration) {
	a.mu.Lock()
	a.discovery.push(float64(d.Milliseconds()))
	a.mu.Unlock()
}

// Launch returns summary statistics for launch latencies.
func (a *LatencyAggregator) Launch() LatencySummary {
	a.mu.Lock()
	samples := a.launch.values()
	total := a.launch.total
	a.mu.Unlock()
	return summarize(samples, total)
}

// Discovery returns summary statistics for discovery latencies.
func (a *LatencyAggregator) Discovery() LatencySummary {
	a.mu.Lock()
	samples := a.discovery.values()
	total := a.discovery.total
	a.mu.Unlock()
	return summarize(samples, total)
}

func summarize(samples []float64, total int64) LatencySummary {
	if len(samples) == 0 {
		return LatencySummary{}
	}
	sort.Float64s(samples)
	return LatencySummary{
		Count: total,
		Mean:  stat.Mean(samples, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, samples, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, samples, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, samples, nil),
	}
}

// ring is a fixed-size overwrite buffer of float64 samples.
type ring struct {
	buf   []float64
	next  int
	full  bool
	total int64
}

func newRing(size int) *ring {
	return &ring{buf: make([]float64, size)}
}

func (r *ring) push(v float64) {
	r.buf[r.next] = v
	r.next++
	r.total++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// values returns a copy of the current samples in insertion-independent order.
func (r *ring) values() []float64 {
	if r.full {
		out := make([]float64, len(r.buf))
		copy(out, r.buf)
		return out
	}
	out := make([]float64, r.next)
	copy(out, r.buf[:r.next])
	return out
}
