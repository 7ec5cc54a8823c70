package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		allowedOrigins []string
		requestOrigin  string
		method         string
		wantStatus     int
		wantHeader     string
	}{
		{"no origins configured blocks all", nil, "https://example.com", http.MethodGet, http.StatusOK, ""},
		{"allowed origin gets header", []string{"https://example.com"}, "https://example.com", http.MethodGet, http.StatusOK, "https://example.com"},
		{"disallowed origin blocked on preflight", []string{"https://example.com"}, "https://evil.com", http.MethodOptions, http.StatusForbidden, ""},
		{"preflight returns no content", []string{"https://example.com"}, "https://example.com", http.MethodOptions, http.StatusNoContent, "https://example.com"},
		{"case insensitive origin match", []string{"HTTPS://EXAMPLE.COM"}, "https://example.com", http.MethodGet, http.StatusOK, "https://example.com"},
		{"no origin header skips CORS", []string{"https://example.com"}, "", http.MethodGet, http.StatusOK, ""},
		{"wildcard matches subdomain", []string{"*.example.com"}, "https://app.example.com", http.MethodGet, http.StatusOK, "https://app.example.com"},
		{"wildcard matches nested subdomain", []string{"*.example.com"}, "https://a.b.example.com", http.MethodGet, http.StatusOK, "https://a.b.example.com"},
		{"wildcard rejects lookalike", []string{"*.example.com"}, "https://notexample.com", http.MethodGet, http.StatusOK, ""},
		{"wildcard rejects bare domain", []string{"*.example.com"}, "https://example.com", http.MethodGet, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := CORS(DefaultCORSConfig(tt.allowedOrigins))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/v1/urls", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	t.Parallel()

	handler := CORS(DefaultCORSConfig([]string{"https://app.example"}))(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/session", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, DELETE, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "86400" {
		t.Errorf("Max-Age = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID" {
		t.Errorf("Expose-Headers = %q", got)
	}
}
