package redis

import (
	"sync/atomic"
	"time"
)

// Metrics tracks backing-store operation statistics
type Metrics struct {
	// Operation counters
	getOperations    atomic.Uint64
	setOperations    atomic.Uint64
	deleteOperations atomic.Uint64
	errorCount       atomic.Uint64

	// Timing metrics (in nanoseconds)
	totalGetLatency    atomic.Uint64
	totalSetLatency    atomic.Uint64
	totalDeleteLatency atomic.Uint64

	// Invalidation metrics
	invalidatedEntries atomic.Uint64
	dependencyLinks    atomic.Uint64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordGet records a get operation with latency
func (m *Metrics) RecordGet(duration time.Duration) {
	m.getOperations.Add(1)
	m.totalGetLatency.Add(uint64(duration.Nanoseconds()))
}

// RecordSet records a set operation with latency
func (m *Metrics) RecordSet(duration time.Duration) {
	m.setOperations.Add(1)
	m.totalSetLatency.Add(uint64(duration.Nanoseconds()))
}

// RecordDelete records a delete operation with latency
func (m *Metrics) RecordDelete(duration time.Duration) {
	m.deleteOperations.Add(1)
	m.totalDeleteLatency.Add(uint64(duration.Nanoseconds()))
}

// RecordError increments the backing-store error counter
func (m *Metrics) RecordError() {
	m.errorCount.Add(1)
}

// RecordInvalidation adds the number of entries removed by one flush
func (m *Metrics) RecordInvalidation(entries int) {
	m.invalidatedEntries.Add(uint64(entries))
}

// RecordDependency adds the number of reverse-index links written
func (m *Metrics) RecordDependency(links int) {
	m.dependencyLinks.Add(uint64(links))
}

// Snapshot returns a point-in-time view of the counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	getOps := m.getOperations.Load()
	setOps := m.setOperations.Load()
	deleteOps := m.deleteOperations.Load()

	var avgGet, avgSet, avgDelete time.Duration
	if getOps > 0 {
		avgGet = time.Duration(m.totalGetLatency.Load() / getOps)
	}
	if setOps > 0 {
		avgSet = time.Duration(m.totalSetLatency.Load() / setOps)
	}
	if deleteOps > 0 {
		avgDelete = time.Duration(m.totalDeleteLatency.Load() / deleteOps)
	}

	return MetricsSnapshot{
		GetOperations:      getOps,
		SetOperations:      setOps,
		DeleteOperations:   deleteOps,
		Errors:             m.errorCount.Load(),
		AvgGetLatency:      avgGet,
		AvgSetLatency:      avgSet,
		AvgDeleteLatency:   avgDelete,
		InvalidatedEntries: m.invalidatedEntries.Load(),
		DependencyLinks:    m.dependencyLinks.Load(),
	}
}

// Reset resets all metrics counters
func (m *Metrics) Reset() {
	m.getOperations.Store(0)
	m.setOperations.Store(0)
	m.deleteOperations.Store(0)
	m.errorCount.Store(0)
	m.totalGetLatency.Store(0)
	m.totalSetLatency.Store(0)
	m.totalDeleteLatency.Store(0)
	m.invalidatedEntries.Store(0)
	m.dependencyLinks.Store(0)
}

// MetricsSnapshot represents a point-in-time snapshot of backing-store metrics
type MetricsSnapshot struct {
	GetOperations    uint64
	SetOperations    uint64
	DeleteOperations uint64
	Errors           uint64

	AvgGetLatency    time.Duration
	AvgSetLatency    time.Duration
	AvgDeleteLatency time.Duration

	InvalidatedEntries uint64
	DependencyLinks    uint64
}
