package session

import "github.com/tailored-agentic-units/streamchat/observability"

// Session event types emitted by the Aggregator.
const (
	EventInit         observability.EventType = "session.init"
	EventCommit       observability.EventType = "session.commit"
	EventToolComplete observability.EventType = "session.tool.complete"
	EventDesync       observability.EventType = "session.desync"
	EventReset        observability.EventType = "session.reset"
)
