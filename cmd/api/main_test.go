package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapurl/snapurl/internal/config"
	"github.com/snapurl/snapurl/internal/handler"
	"github.com/snapurl/snapurl/internal/metrics"
	"github.com/snapurl/snapurl/internal/model"
	"github.com/snapurl/snapurl/internal/service"
	"github.com/snapurl/snapurl/internal/session"
	"github.com/snapurl/snapurl/internal/store"
	"github.com/snapurl/snapurl/internal/telemetry"
	"github.com/snapurl/snapurl/internal/testutil"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		AppEnv:             "development",
		BaseURL:            "http://localhost:8080",
		StoreBackend:       store.BackendMemory,
		CORSAllowedOrigins: "https://app.example.com",
		MaxRequestBodySize: 1024,
	}
	logger := testutil.DiscardLogger()
	st := store.NewMemory()
	rec := metrics.NewInMemory()
	events := telemetry.NewRecorder()

	registry := service.NewRegistry(st, logger, events, rec)
	require.NoError(t, registry.Load(context.Background()))
	sessions := session.NewManager(st, logger, events, model.RealClock{})
	resolver := service.NewResolver(registry, service.ExpiryIgnore, logger, events, rec)

	return setupRouter(
		handler.New(),
		handler.NewHealthHandler(st, cfg.StoreBackend),
		handler.NewMetricsHandler(rec),
		handler.NewURLHandler(registry, cfg.BaseURL, 0, logger),
		handler.NewRedirectHandler(resolver, logger),
		handler.NewSessionHandler(sessions, logger),
		handler.NewStatisticsHandler(registry, cfg.BaseURL),
		sessions,
		cfg,
		logger,
	)
}

func serve(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_EndToEnd(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodPost, "/api/v1/urls", `{"url":"https://example.com","shortcode":"hello"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = serve(r, http.MethodGet, "/hello", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))

	w = serve(r, http.MethodGet, "/api/v1/statistics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/session", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&login))

	w = serve(r, http.MethodGet, "/api/v1/statistics", "", map[string]string{"Authorization": "Bearer " + login.Token})
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		TotalURLs   int   `json:"totalUrls"`
		TotalClicks int64 `json:"totalClicks"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, 1, summary.TotalURLs)
	assert.Equal(t, int64(1), summary.TotalClicks)

	w = serve(r, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, w.Body.String(), `snapurl_redirects_total{outcome="hit"} 1`)
}

func TestRouter_Infrastructure(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/"} {
		w := serve(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := serve(r, http.MethodGet, "/no/such/route", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodOptions, "/api/v1/urls", "", map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	big := `{"url":"https://example.com/` + strings.Repeat("a", 2048) + `"}`
	w = serve(r, http.MethodPost, "/api/v1/urls", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://user:secret@db:5432/snapurl", "postgres://user@db:5432/snapurl"},
		{"redis://:secret@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"redis://cache:6379", "redis://cache:6379"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, redactURL(tt.in), tt.in)
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://user:secret@db:5432/snapurl"
	err := errors.New("dial " + dsn + " failed: password=hunter2")

	got := sanitizeError(err, dsn)

	assert.NotContains(t, got, "secret")
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "password=redacted")
	assert.Empty(t, sanitizeError(nil))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}
