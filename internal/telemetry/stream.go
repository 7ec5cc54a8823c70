package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamKey is the Redis stream for telemetry events.
	StreamKey = "stream:telemetry"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000
)

// StreamSink appends events to a Redis stream.
type StreamSink struct {
	redis *redis.Client
}

// NewStreamSink creates a sink writing to StreamKey.
func NewStreamSink(client *redis.Client) *StreamSink {
	return &StreamSink{redis: client}
}

// Send XADDs the event as a JSON payload.
func (s *StreamSink) Send(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{
			"level":   string(event.Level),
			"package": string(event.Category),
			"payload": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}
