package telemetry

import (
	"context"
	"log/slog"
)

// LogSink writes events to a local slog logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("stream", "telemetry")}
}

// Send logs the event at the matching slog level.
func (s *LogSink) Send(ctx context.Context, event Event) error {
	attrs := make([]slog.Attr, 0, len(event.Fields)+2)
	attrs = append(attrs,
		slog.String("category", string(event.Category)),
		slog.Time("event_time", event.Time),
	)
	for key, value := range event.Fields {
		attrs = append(attrs, slog.Any(key, value))
	}
	if event.Level == LevelFatal {
		attrs = append(attrs, slog.Bool("fatal", true))
	}

	s.logger.LogAttrs(ctx, slogLevel(event.Level), event.Message, attrs...)
	return nil
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFatal:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
