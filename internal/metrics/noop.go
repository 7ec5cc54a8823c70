package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncURLCreated is a no-op.
func (n *NoopRecorder) IncURLCreated() {}

// IncCreateFailed is a no-op.
func (n *NoopRecorder) IncCreateFailed(reason string) {}

// IncRedirectHit is a no-op.
func (n *NoopRecorder) IncRedirectHit() {}

// IncRedirectMiss is a no-op.
func (n *NoopRecorder) IncRedirectMiss() {}

// IncRedirectExpired is a no-op.
func (n *NoopRecorder) IncRedirectExpired() {}

// ObserveResolveDuration is a no-op.
func (n *NoopRecorder) ObserveResolveDuration(duration time.Duration) {}

// IncTelemetryEvent is a no-op.
func (n *NoopRecorder) IncTelemetryEvent(status string) {}
