// Package metrics provides in-process timing instrumentation for tg.
//
// Each named operation (bundle parsing, layout steps, scene sync, snapshot
// rendering) keeps count, total, min and max durations updated with atomic
// operations. Collection is on by default; TG_METRICS=0 disables it.
//
//	func (s *Simulation) Step() bool {
//	    defer metrics.Timer(metrics.LayoutTick)()
//	    ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("TG_METRICS") != "0")
}

// Enabled returns whether metrics are being collected.
func Enabled() bool { return enabled.Load() }

// SetEnabled toggles collection.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates durations for one operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 until the first sample
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)
	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a consistent-enough snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats is a point-in-time view of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name" yaml:"name"`
	Count   int64   `json:"count" yaml:"count"`
	TotalMs float64 `json:"total_ms" yaml:"total_ms"`
	AvgMs   float64 `json:"avg_ms" yaml:"avg_ms"`
	MaxMs   float64 `json:"max_ms" yaml:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty" yaml:"min_ms,omitempty"`
}

// Timer returns a func that records the time elapsed since Timer was called.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Registered metrics.
var (
	BundleParse    = newTimingMetric("bundle_parse")
	LayoutTick     = newTimingMetric("layout_tick")
	LayoutConverge = newTimingMetric("layout_converge")
	SceneSync      = newTimingMetric("scene_sync")
	SnapshotRender = newTimingMetric("snapshot_render")
)

// AllTimingMetrics returns every registered metric.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		BundleParse,
		LayoutTick,
		LayoutConverge,
		SceneSync,
		SnapshotRender,
	}
}

// ResetAll clears every registered metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns stats for metrics that have samples.
func AllTimingStats() []TimingStats {
	all := AllTimingMetrics()
	out := make([]TimingStats, 0, len(all))
	for _, m := range all {
		if m.Count() > 0 {
			out = append(out, m.Stats())
		}
	}
	return out
}
