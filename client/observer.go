package client

import "github.com/tailored-agentic-units/streamchat/observability"

// Client event types emitted by the event loop.
const (
	EventSelect          observability.EventType = "client.select"
	EventHistoryLoaded   observability.EventType = "client.history.loaded"
	EventHistoryFailed   observability.EventType = "client.history.failed"
	EventHistoryMissing  observability.EventType = "client.history.missing"
	EventConversationID  observability.EventType = "client.conversation.id"
	EventDecodeFailed    observability.EventType = "client.decode.failed"
	EventStaleDropped    observability.EventType = "client.stale.dropped"
	EventSend            observability.EventType = "client.send"
	EventSendRejected    observability.EventType = "client.send.rejected"
	EventSelectionFailed observability.EventType = "client.selection.failed"
)
