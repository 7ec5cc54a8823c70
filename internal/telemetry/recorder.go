package telemetry

import (
	"context"
	"sync"
)

// Recorder captures events in memory. It is both an Emitter (synchronous,
// no validation) and a Sink, and is meant for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit records the event.
func (r *Recorder) Emit(level Level, category Category, message string, fields Fields) {
	r.record(Event{Level: level, Category: category, Message: message, Fields: fields})
}

// Send records the event.
func (r *Recorder) Send(ctx context.Context, event Event) error {
	r.record(event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Messages returns recorded messages in order.
func (r *Recorder) Messages() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Nop discards every event.
type Nop struct{}

// Emit does nothing.
func (Nop) Emit(Level, Category, string, Fields) {}
