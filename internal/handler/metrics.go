package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/snapurl/snapurl/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "snapurl_urls_created_total %d\n", snap.URLsCreated)

	reasons := make([]string, 0, len(snap.CreateFailures))
	for reason := range snap.CreateFailures {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		writeMetric(w, "snapurl_url_create_failures_total{reason=%q} %d\n", reason, snap.CreateFailures[reason])
	}

	writeMetric(w, "snapurl_redirects_total{outcome=\"hit\"} %d\n", snap.RedirectHits)
	writeMetric(w, "snapurl_redirects_total{outcome=\"miss\"} %d\n", snap.RedirectMisses)
	writeMetric(w, "snapurl_redirects_total{outcome=\"expired\"} %d\n", snap.RedirectExpired)
	writeMetric(w, "snapurl_resolve_duration_seconds_count %d\n", snap.ResolveDurationCount)
	writeMetric(w, "snapurl_resolve_duration_seconds_sum %.6f\n", float64(snap.ResolveDurationTotalNs)/1e9)

	writeMetric(w, "snapurl_telemetry_events_total{status=\"sent\"} %d\n", snap.TelemetrySent)
	writeMetric(w, "snapurl_telemetry_events_total{status=\"dropped\"} %d\n", snap.TelemetryDropped)
	writeMetric(w, "snapurl_telemetry_events_total{status=\"rejected\"} %d\n", snap.TelemetryRejected)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
