package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/snapurl/snapurl/internal/testutil"
)

func TestLogSink_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFatal, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			sink := NewLogSink(logger)

			err := sink.Send(context.Background(), Event{
				Level:    tt.level,
				Category: CategoryPage,
				Message:  "Short URL clicked and redirected",
				Fields:   Fields{"shortCode": "abc123"},
			})
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log output is not JSON: %v", err)
			}
			if entry["level"] != tt.want {
				t.Errorf("level = %v, want %s", entry["level"], tt.want)
			}
			if entry["shortCode"] != "abc123" {
				t.Errorf("shortCode = %v", entry["shortCode"])
			}
			if entry["category"] != "page" {
				t.Errorf("category = %v", entry["category"])
			}
		})
	}
}

func TestStreamSink_Integration(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	before, _ := client.XLen(ctx, StreamKey).Result()

	sink := NewStreamSink(client)
	if err := sink.Send(ctx, Event{Level: LevelInfo, Category: CategoryAPI, Message: "URL shortened successfully"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	after, err := client.XLen(ctx, StreamKey).Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if after <= before {
		t.Errorf("stream length %d -> %d, want growth", before, after)
	}
}
