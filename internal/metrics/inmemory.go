package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	URLsCreated            uint64
	CreateFailures         map[string]uint64
	RedirectHits           uint64
	RedirectMisses         uint64
	RedirectExpired        uint64
	ResolveDurationCount   uint64
	ResolveDurationTotalNs int64
	TelemetrySent          uint64
	TelemetryDropped       uint64
	TelemetryRejected      uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	urlsCreated            uint64
	redirectHits           uint64
	redirectMisses         uint64
	redirectExpired        uint64
	resolveDurationCount   uint64
	resolveDurationTotalNs int64
	telemetrySent          uint64
	telemetryDropped       uint64
	telemetryRejected      uint64

	mu             sync.Mutex
	createFailures map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{createFailures: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	failures := make(map[string]uint64, len(m.createFailures))
	for reason, n := range m.createFailures {
		failures[reason] = n
	}
	m.mu.Unlock()

	return Snapshot{
		URLsCreated:            atomic.LoadUint64(&m.urlsCreated),
		CreateFailures:         failures,
		RedirectHits:           atomic.LoadUint64(&m.redirectHits),
		RedirectMisses:         atomic.LoadUint64(&m.redirectMisses),
		RedirectExpired:        atomic.LoadUint64(&m.redirectExpired),
		ResolveDurationCount:   atomic.LoadUint64(&m.resolveDurationCount),
		ResolveDurationTotalNs: atomic.LoadInt64(&m.resolveDurationTotalNs),
		TelemetrySent:          atomic.LoadUint64(&m.telemetrySent),
		TelemetryDropped:       atomic.LoadUint64(&m.telemetryDropped),
		TelemetryRejected:      atomic.LoadUint64(&m.telemetryRejected),
	}
}

// IncURLCreated increments the created counter.
func (m *InMemoryRecorder) IncURLCreated() {
	atomic.AddUint64(&m.urlsCreated, 1)
}

// IncCreateFailed increments the failure counter for reason.
func (m *InMemoryRecorder) IncCreateFailed(reason string) {
	m.mu.Lock()
	m.createFailures[reason]++
	m.mu.Unlock()
}

// IncRedirectHit increments the redirect hit counter.
func (m *InMemoryRecorder) IncRedirectHit() {
	atomic.AddUint64(&m.redirectHits, 1)
}

// IncRedirectMiss increments the redirect miss counter.
func (m *InMemoryRecorder) IncRedirectMiss() {
	atomic.AddUint64(&m.redirectMisses, 1)
}

// IncRedirectExpired increments the expired redirect counter.
func (m *InMemoryRecorder) IncRedirectExpired() {
	atomic.AddUint64(&m.redirectExpired, 1)
}

// ObserveResolveDuration records resolve duration.
func (m *InMemoryRecorder) ObserveResolveDuration(duration time.Duration) {
	atomic.AddUint64(&m.resolveDurationCount, 1)
	atomic.AddInt64(&m.resolveDurationTotalNs, duration.Nanoseconds())
}

// IncTelemetryEvent increments the telemetry counter for status.
func (m *InMemoryRecorder) IncTelemetryEvent(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.telemetrySent, 1)
	case "dropped":
		atomic.AddUint64(&m.telemetryDropped, 1)
	case "rejected":
		atomic.AddUint64(&m.telemetryRejected, 1)
	}
}
