package observability

import "context"

// NoOpObserver drops every event. Components use it until an observer is
// configured.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
