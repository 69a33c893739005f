package util

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// PerfMetric aggregates the timings recorded under one name
type PerfMetric struct {
	Name      string        `json:"name"`
	Count     int64         `json:"count"`
	Last      time.Duration `json:"last"`
	TotalTime time.Duration `json:"total"`
}

// Average returns the mean duration of the metric
func (m PerfMetric) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Count)
}

// PerfTracker records durations and counters, e.g. per-provider attempt
// latency and win counts. The zero value is not usable; call NewPerfTracker.
type PerfTracker struct {
	mu       sync.RWMutex
	metrics  map[string]*PerfMetric
	started  time.Time
	counters map[string]*int64
}

// NewPerfTracker creates an empty tracker
func NewPerfTracker() *PerfTracker {
	return &PerfTracker{
		metrics:  make(map[string]*PerfMetric),
		started:  time.Now(),
		counters: make(map[string]*int64),
	}
}

// Record records a metric with the given name and duration
func (pt *PerfTracker) Record(name string, duration time.Duration) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()

	metric, exists := pt.metrics[name]
	if !exists {
		metric = &PerfMetric{Name: name}
		pt.metrics[name] = metric
	}

	metric.Count++
	metric.TotalTime += duration
	metric.Last = duration
}

// IncrementCounter increments a named counter atomically
func (pt *PerfTracker) IncrementCounter(name string) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	counter, exists := pt.counters[name]
	if !exists {
		var c int64
		counter = &c
		pt.counters[name] = counter
	}
	pt.mu.Unlock()

	atomic.AddInt64(counter, 1)
}

// GetCounter returns the current value of a counter
func (pt *PerfTracker) GetCounter(name string) int64 {
	if pt == nil {
		return 0
	}
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	counter, exists := pt.counters[name]
	if !exists {
		return 0
	}
	return atomic.LoadInt64(counter)
}

// PerfSnapshot is a point-in-time copy of a tracker
type PerfSnapshot struct {
	Uptime   time.Duration    `json:"uptime"`
	Metrics  []PerfMetric     `json:"metrics"`
	Counters map[string]int64 `json:"counters"`
}

// Snapshot returns a copy of all metrics sorted by name
func (pt *PerfTracker) Snapshot() PerfSnapshot {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	snap := PerfSnapshot{
		Uptime:   time.Since(pt.started),
		Metrics:  make([]PerfMetric, 0, len(pt.metrics)),
		Counters: make(map[string]int64, len(pt.counters)),
	}
	for _, m := range pt.metrics {
		snap.Metrics = append(snap.Metrics, *m)
	}
	sort.Slice(snap.Metrics, func(i, j int) bool { return snap.Metrics[i].Name < snap.Metrics[j].Name })

	for k, c := range pt.counters {
		snap.Counters[k] = atomic.LoadInt64(c)
	}
	return snap
}
