package chattest

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/streamchat/core/event"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

const (
	toolCallsMarker    = ":::TOOL_CALLS:::"
	toolUsePlaceholder = "🤖 [Thinking/Tool Use]"
)

type storedToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
	ID   string          `json:"id"`
	Type string          `json:"type"`
}

// transcribe turns a reply into the rows the agent would persist: reasoning
// before a tool call is saved with the call appended after the marker, tool
// output as a tool row, and the final text as a plain assistant row.
func transcribe(events []event.Event) []Message {
	var (
		msgs    []Message
		pending strings.Builder
	)

	for _, ev := range events {
		switch e := ev.(type) {
		case event.Token:
			pending.WriteString(e.Content)
		case event.ToolStart:
			text := pending.String()
			if text == "" {
				text = toolUsePlaceholder
			}
			calls, _ := json.Marshal([]storedToolCall{{
				Name: e.Tool,
				Args: argsJSON(e.Args),
				ID:   "call_" + uuid.NewString()[:8],
				Type: "tool_call",
			}})
			msgs = append(msgs, Text(protocol.RoleAssistant, text+"\n"+toolCallsMarker+string(calls)))
			pending.Reset()
		case event.ToolResult:
			msgs = append(msgs, Text(protocol.RoleTool, e.Output))
		case event.Done:
			if pending.Len() > 0 {
				msgs = append(msgs, Text(protocol.RoleAssistant, pending.String()))
			}
			pending.Reset()
		}
	}
	return msgs
}

func argsJSON(args string) json.RawMessage {
	if json.Valid([]byte(args)) && strings.HasPrefix(strings.TrimSpace(args), "{") {
		return json.RawMessage(args)
	}
	return json.RawMessage("{}")
}
