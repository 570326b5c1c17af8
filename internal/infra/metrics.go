package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight counters for the ingest and recompute paths.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksIngested atomic.Uint64
	ticksDropped  atomic.Uint64
	recomputes    atomic.Uint64
	alertsRaised  atomic.Uint64
	reconnects    atomic.Uint64
	errorsTotal   atomic.Uint64

	// Recompute latency
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	lastSeriesLen     atomic.Int64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records an accepted tick.
func (m *Metrics) RecordTick() {
	m.ticksIngested.Add(1)
}

// RecordDrop records a tick rejected by a full inbox or an unknown symbol.
func (m *Metrics) RecordDrop() {
	m.ticksDropped.Add(1)
}

// RecordRecompute records one pipeline pass with its latency and output length.
func (m *Metrics) RecordRecompute(latency time.Duration, seriesLen int) {
	m.recomputes.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
	m.lastSeriesLen.Store(int64(seriesLen))
}

// RecordAlert records a stored z-score alert.
func (m *Metrics) RecordAlert() {
	m.alertsRaised.Add(1)
}

// RecordReconnect records a websocket reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksIngested     uint64    `json:"ticks_ingested"`
	TicksDropped      uint64    `json:"ticks_dropped"`
	Recomputes        uint64    `json:"recomputes"`
	AlertsRaised      uint64    `json:"alerts_raised"`
	Reconnects        uint64    `json:"reconnects"`
	ErrorsTotal       uint64    `json:"errors_total"`
	AvgRecomputeNs    int64     `json:"avg_recompute_ns"`
	ActiveConnections int32     `json:"active_connections"`
	SeriesLength      int64     `json:"series_length"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksIngested:     m.ticksIngested.Load(),
		TicksDropped:      m.ticksDropped.Load(),
		Recomputes:        m.recomputes.Load(),
		AlertsRaised:      m.alertsRaised.Load(),
		Reconnects:        m.reconnects.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgRecomputeNs:    avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		SeriesLength:      m.lastSeriesLen.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksIngested.Store(0)
	m.ticksDropped.Store(0)
	m.recomputes.Store(0)
	m.alertsRaised.Store(0)
	m.reconnects.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
	m.lastSeriesLen.Store(0)
}
