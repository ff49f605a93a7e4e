package history

import "github.com/tailored-agentic-units/streamchat/observability"

// History client event types.
const (
	EventRequest      observability.EventType = "history.request"
	EventBadToolCalls observability.EventType = "history.toolcalls.invalid"
	EventBadRole      observability.EventType = "history.role.invalid"
)
