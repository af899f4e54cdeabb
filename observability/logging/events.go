package logging

import (
	"context"
	"log/slog"

	"nexuscash/core/events"
)

type recordable interface {
	Event() *events.Record
}

// EventLogger is an events.Emitter that writes every domain event to a
// structured logger.
type EventLogger struct {
	Logger *slog.Logger
	Level  slog.Level
}

// Emit implements events.Emitter.
func (l EventLogger) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(context.Background(), l.Level) {
		return
	}
	attrs := []any{"type", evt.EventType()}
	if r, ok := evt.(recordable); ok {
		if record := r.Event(); record != nil {
			group := make([]any, 0, len(record.Attributes)*2)
			for key, value := range record.Attributes {
				group = append(group, key, value)
			}
			attrs = append(attrs, slog.Group("attributes", group...))
		}
	}
	logger.Log(context.Background(), l.Level, "domain event", attrs...)
}
