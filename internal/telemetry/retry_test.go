package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type flakySink struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (s *flakySink) Send(ctx context.Context, event Event) error {
	if n := s.calls.Add(1); n <= s.failures {
		return s.err
	}
	return nil
}

func newTestRetrySink(sink Sink, attempts int) *RetrySink {
	rs := NewRetrySink(sink, attempts)
	rs.delay = func(int) time.Duration { return time.Millisecond }
	return rs
}

func TestNextRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt  int
		minDelay time.Duration
		maxDelay time.Duration
	}{
		{-1, 80 * time.Millisecond, 120 * time.Millisecond},
		{0, 80 * time.Millisecond, 120 * time.Millisecond},
		{1, 320 * time.Millisecond, 480 * time.Millisecond},
		{2, 800 * time.Millisecond, 1200 * time.Millisecond},
		{9, 800 * time.Millisecond, 1200 * time.Millisecond},
	}

	for _, tt := range tests {
		for i := 0; i < 10; i++ {
			delay := NextRetryDelay(tt.attempt)
			if delay < tt.minDelay || delay > tt.maxDelay {
				t.Errorf("NextRetryDelay(%d) = %v, want between %v and %v",
					tt.attempt, delay, tt.minDelay, tt.maxDelay)
			}
		}
	}
}

func TestRetrySink_RecoversFromTransientFailures(t *testing.T) {
	t.Parallel()

	inner := &flakySink{failures: 2, err: errors.New("connection reset")}
	sink := newTestRetrySink(inner, 3)

	if err := sink.Send(context.Background(), Event{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRetrySink_GivesUp(t *testing.T) {
	t.Parallel()

	inner := &flakySink{failures: 10, err: errors.New("connection reset")}
	sink := newTestRetrySink(inner, 3)

	err := sink.Send(context.Background(), Event{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRetrySink_StopsOnPermanent(t *testing.T) {
	t.Parallel()

	inner := &flakySink{failures: 10, err: Permanent(errors.New("bad request"))}
	sink := newTestRetrySink(inner, 3)

	err := sink.Send(context.Background(), Event{})
	if !IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestRetrySink_HonorsContext(t *testing.T) {
	t.Parallel()

	inner := &flakySink{failures: 10, err: errors.New("timeout")}
	sink := NewRetrySink(inner, 5)
	sink.delay = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sink.Send(ctx, Event{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestHTTPSink_ClassifiesStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status        int
		wantPermanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, false},
		{http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		mux := http.NewServeMux()
		mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		})
		mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		srv := httptest.NewServer(mux)

		sink := NewHTTPSink(srv.URL+"/logs", NewTokenSource(srv.URL+"/auth", Credentials{}, srv.Client()), srv.Client())
		err := sink.Send(context.Background(), Event{Level: LevelInfo, Category: CategoryAPI, Message: "m"})
		srv.Close()

		if err == nil {
			t.Errorf("status %d: expected error", tt.status)
			continue
		}
		if IsPermanent(err) != tt.wantPermanent {
			t.Errorf("status %d: permanent = %v, want %v", tt.status, IsPermanent(err), tt.wantPermanent)
		}
	}
}
