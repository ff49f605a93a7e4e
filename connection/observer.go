package connection

import "github.com/tailored-agentic-units/streamchat/observability"

// Connection event types emitted by the Manager.
const (
	EventConnect    observability.EventType = "connection.connect"
	EventOpen       observability.EventType = "connection.open"
	EventDialFailed observability.EventType = "connection.dial.failed"
	EventClose      observability.EventType = "connection.close"
	EventSuperseded observability.EventType = "connection.superseded"
)
