package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/snapurl/snapurl/internal/metrics"
)

// DefaultSendTimeout bounds a single delivery to a sink.
const DefaultSendTimeout = 2 * time.Second

// Sink delivers a validated event somewhere.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// Client validates events and hands them to a sink asynchronously.
// Emit never blocks on delivery and never reports failures to the caller.
type Client struct {
	sink        Sink
	logger      *slog.Logger
	metrics     metrics.Recorder
	sendTimeout time.Duration
	now         func() time.Time

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewClient creates a telemetry client for sink.
func NewClient(sink Sink, logger *slog.Logger, recorder metrics.Recorder) *Client {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Client{
		sink:        sink,
		logger:      logger.With("component", "telemetry"),
		metrics:     recorder,
		sendTimeout: DefaultSendTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Emit validates the event and delivers it in the background.
func (c *Client) Emit(level Level, category Category, message string, fields Fields) {
	event := Event{
		Level:    level,
		Category: category,
		Message:  message,
		Fields:   fields,
		Time:     c.now(),
	}

	if err := ValidateEvent(event); err != nil {
		c.logger.Warn("telemetry event rejected",
			"category", string(category),
			"message", message,
			"error", err,
		)
		c.metrics.IncTelemetryEvent("rejected")
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.metrics.IncTelemetryEvent("dropped")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.sendTimeout)
		defer cancel()

		if err := c.sink.Send(ctx, event); err != nil {
			c.logger.Warn("failed to deliver telemetry event",
				"level", string(event.Level),
				"category", string(event.Category),
				"message", event.Message,
				"error", err,
			)
			c.metrics.IncTelemetryEvent("dropped")
			return
		}
		c.metrics.IncTelemetryEvent("success")
	}()
}

// Close stops accepting events and waits for in-flight deliveries.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("telemetry drain incomplete"), ctx.Err())
	}
}
