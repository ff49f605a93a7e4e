package dispatch

import "github.com/tailored-agentic-units/streamchat/observability"

// Dispatcher event types.
const (
	EventTransmit  observability.EventType = "dispatch.transmit"
	EventCancel    observability.EventType = "dispatch.cancel"
	EventReconnect observability.EventType = "dispatch.reconnect"
)
