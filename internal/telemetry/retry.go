package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Retry delays for a failed delivery, before jitter.
// Attempt 1: 100ms, Attempt 2: 400ms, later attempts: 1s.
var retryDelays = []time.Duration{
	100 * time.Millisecond,
	400 * time.Millisecond,
	1 * time.Second,
}

const (
	// DefaultMaxAttempts is the default number of delivery attempts.
	DefaultMaxAttempts = 3

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// NextRetryDelay returns the backoff before retry number attempt (0-indexed)
// with ±20% jitter. Attempts past the table reuse the last delay.
func NextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryDelays) {
		attempt = len(retryDelays) - 1
	}

	base := retryDelays[attempt]
	jitter := (rand.Float64()*2 - 1) * float64(base) * JitterFactor
	return time.Duration(float64(base) + jitter)
}

// RetrySink retries transient delivery failures of another sink. The
// caller's context bounds the whole exchange, retries included.
type RetrySink struct {
	sink        Sink
	maxAttempts int
	delay       func(attempt int) time.Duration
}

// NewRetrySink wraps sink. maxAttempts below 1 means DefaultMaxAttempts.
func NewRetrySink(sink Sink, maxAttempts int) *RetrySink {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &RetrySink{
		sink:        sink,
		maxAttempts: maxAttempts,
		delay:       NextRetryDelay,
	}
}

// Send delivers event, retrying until it succeeds, fails permanently,
// runs out of attempts or ctx ends.
func (s *RetrySink) Send(ctx context.Context, event Event) error {
	var err error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err = s.sink.Send(ctx, event)
		if err == nil || IsPermanent(err) {
			return err
		}
		if attempt == s.maxAttempts-1 {
			break
		}

		timer := time.NewTimer(s.delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", s.maxAttempts, err)
}
