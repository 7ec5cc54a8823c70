package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snapurl/snapurl/internal/metrics"
)

func TestMetricsHandler_Metrics(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncURLCreated()
	recorder.IncCreateFailed("shortcode_taken")
	recorder.IncCreateFailed("invalid_url")
	recorder.IncRedirectHit()
	recorder.IncRedirectMiss()
	recorder.ObserveResolveDuration(1500 * time.Microsecond)
	recorder.IncTelemetryEvent("success")

	h := NewMetricsHandler(recorder)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	h.Metrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"snapurl_urls_created_total 1\n",
		"snapurl_url_create_failures_total{reason=\"invalid_url\"} 1\n",
		"snapurl_url_create_failures_total{reason=\"shortcode_taken\"} 1\n",
		"snapurl_redirects_total{outcome=\"hit\"} 1\n",
		"snapurl_redirects_total{outcome=\"miss\"} 1\n",
		"snapurl_resolve_duration_seconds_sum 0.001500\n",
		"snapurl_telemetry_events_total{status=\"sent\"} 1\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	if strings.Index(body, "invalid_url") > strings.Index(body, "shortcode_taken") {
		t.Error("failure reasons should be sorted")
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	h := NewMetricsHandler(nil)
	rec := httptest.NewRecorder()

	h.Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}
