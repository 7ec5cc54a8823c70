package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/snapurl/snapurl/internal/handler/dto"
	"github.com/snapurl/snapurl/internal/service"
)

func TestRedirectHandler_Redirect(t *testing.T) {
	env := newTestEnv(t, service.ExpiryIgnore)
	env.do(t, http.MethodPost, "/api/v1/urls", `{"url":"https://example.com/landing","shortcode":"promo1"}`)

	rec := env.do(t, http.MethodGet, "/promo1", "", "Referer", "https://social.example/feed#top")

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/landing" {
		t.Errorf("Location = %s", loc)
	}
	if rec.Header().Get("Cache-Control") != "private, no-store" {
		t.Errorf("redirects must not be cached, got %q", rec.Header().Get("Cache-Control"))
	}

	got, err := env.registry.FindByShortCode("promo1")
	if err != nil {
		t.Fatalf("FindByShortCode: %v", err)
	}
	if got.Clicks.Total != 1 {
		t.Fatalf("expected 1 click, got %d", got.Clicks.Total)
	}
	click := got.Clicks.Details[0]
	if click.Source != "https://social.example/feed" {
		t.Errorf("Source = %s", click.Source)
	}
	if !click.Timestamp.Equal(env.clock.Now()) {
		t.Errorf("Timestamp = %v", click.Timestamp)
	}
}

func TestRedirectHandler_NotFound(t *testing.T) {
	env := newTestEnv(t, service.ExpiryIgnore)

	rec := env.do(t, http.MethodGet, "/nothere", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if resp := decode[dto.ErrorResponse](t, rec); resp.Code != "LINK_NOT_FOUND" {
		t.Errorf("expected LINK_NOT_FOUND, got %s", resp.Code)
	}

	msgs := env.events.Messages()
	if len(msgs) != 1 || msgs[0] != "Short URL not found for redirection" {
		t.Errorf("unexpected events: %v", msgs)
	}
}

func TestRedirectHandler_NotApplicable(t *testing.T) {
	env := newTestEnv(t, service.ExpiryIgnore)

	rec := env.do(t, http.MethodGet, "/a.b", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if resp := decode[dto.ErrorResponse](t, rec); resp.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", resp.Code)
	}
	if n := len(env.events.Events()); n != 0 {
		t.Errorf("non-code paths emit nothing, got %d events", n)
	}
}

func TestRedirectHandler_ExpiredLinks(t *testing.T) {
	tests := []struct {
		policy     service.ExpiryPolicy
		wantStatus int
		wantClicks int64
	}{
		{service.ExpiryIgnore, http.StatusFound, 1},
		{service.ExpiryEnforce, http.StatusGone, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			env := newTestEnv(t, tt.policy)
			env.do(t, http.MethodPost, "/api/v1/urls", `{"url":"https://example.com","validity":1,"shortcode":"brief"}`)
			env.clock.Advance(2 * time.Minute)

			rec := env.do(t, http.MethodGet, "/brief", "")

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			got, _ := env.registry.FindByShortCode("brief")
			if got.Clicks.Total != tt.wantClicks {
				t.Errorf("expected %d clicks, got %d", tt.wantClicks, got.Clicks.Total)
			}
		})
	}
}

func TestRedirectHandler_ApiSegmentIsAShortCode(t *testing.T) {
	env := newTestEnv(t, service.ExpiryIgnore)

	created := env.do(t, http.MethodPost, "/api/v1/urls", `{"url":"https://example.com/api-docs","shortcode":"api"}`)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for custom code api, got %d: %s", created.Code, created.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/api-docs" {
		t.Errorf("Location = %s", loc)
	}
}
