// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Registry metrics
	IncURLCreated()
	IncCreateFailed(reason string) // reason: "invalid_url", "invalid_validity", "invalid_shortcode", "shortcode_taken", "exhausted"

	// Redirect metrics
	IncRedirectHit()
	IncRedirectMiss()
	IncRedirectExpired()
	ObserveResolveDuration(duration time.Duration)

	// Telemetry pipeline metrics
	IncTelemetryEvent(status string) // status: "success", "dropped" or "rejected"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
