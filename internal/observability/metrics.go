package observability

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for companion turns, tasks and alerts.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	streamChunks  atomic.Int64

	// keyed by turn kind: "chat", "chat_stream", "task:<mode>"
	kindMetrics map[string]*KindMetrics
	alerts      map[string]int64

	durations    []time.Duration
	maxDurations int
}

// KindMetrics represents metrics for a specific turn kind.
type KindMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		kindMetrics:  make(map[string]*KindMetrics),
		alerts:       make(map[string]int64),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a request of the given kind.
func (m *Metrics) RecordRequest(kind string) {
	m.requestTotal.Add(1)
	m.kind(kind).executionCount.Add(1)
}

// RecordFailure records a failed request.
func (m *Metrics) RecordFailure(kind string) {
	m.requestFailed.Add(1)
	m.kind(kind).errorCount.Add(1)
}

// RecordDuration records a request duration.
func (m *Metrics) RecordDuration(kind string, duration time.Duration) {
	km := m.kind(kind)

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()

	km.totalDuration.Add(duration.Milliseconds())
}

// RecordStreamChunk records a stream chunk sent.
func (m *Metrics) RecordStreamChunk() {
	m.streamChunks.Add(1)
}

// Alert increments the named alert counter and logs it so that log-based alerting can pick it up.
func (m *Metrics) Alert(name string, attrs ...any) {
	m.mu.Lock()
	m.alerts[name]++
	count := m.alerts[name]
	m.mu.Unlock()

	args := append([]any{"alert", true, "alert_name", name, "count", count}, attrs...)
	slog.Error("companion alert raised", args...)
}

// Alerts returns a copy of the alert counters.
func (m *Metrics) Alerts() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(m.alerts))
	for k, v := range m.alerts {
		out[k] = v
	}
	return out
}

func (m *Metrics) kind(kind string) *KindMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	km, ok := m.kindMetrics[kind]
	if !ok {
		km = &KindMetrics{}
		m.kindMetrics[kind] = km
	}
	return km
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	kinds := make(map[string]*KindSnapshot, len(m.kindMetrics))
	for kind, km := range m.kindMetrics {
		count := km.executionCount.Load()
		var avg int64
		if count > 0 {
			avg = km.totalDuration.Load() / count
		}
		kinds[kind] = &KindSnapshot{
			ExecutionCount:  count,
			ErrorCount:      km.errorCount.Load(),
			AverageDuration: avg,
		}
	}

	alerts := make(map[string]int64, len(m.alerts))
	for k, v := range m.alerts {
		alerts[k] = v
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		StreamChunks:  m.streamChunks.Load(),
		Kinds:         kinds,
		Alerts:        alerts,
		DurationCount: len(m.durations),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                    `json:"request_total"`
	RequestFailed int64                    `json:"request_failed"`
	StreamChunks  int64                    `json:"stream_chunks"`
	Kinds         map[string]*KindSnapshot `json:"kinds"`
	Alerts        map[string]int64         `json:"alerts"`
	DurationCount int                      `json:"duration_count"`
}

// KindSnapshot represents metrics for a specific turn kind.
type KindSnapshot struct {
	ExecutionCount  int64 `json:"execution_count"`
	ErrorCount      int64 `json:"error_count"`
	AverageDuration int64 `json:"average_duration_ms"`
}
