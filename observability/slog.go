package observability

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// SlogObserver writes events through a slog.Logger. The record keeps the
// event's own timestamp; the event type is the message and Data keys become
// attributes in sorted order.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver that emits to the given logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	handler := o.logger.Handler()
	if !handler.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(event.Timestamp, level, string(event.Type), 0)
	r.AddAttrs(slog.String("source", event.Source))
	for _, k := range slices.Sorted(maps.Keys(event.Data)) {
		r.AddAttrs(slog.Any(k, event.Data[k]))
	}
	_ = handler.Handle(ctx, r)
}
