package history

import (
	"encoding/json"
	"strings"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

// ToolCallsMarker separates the visible text of a persisted assistant turn
// from the JSON list of tool calls it made.
const ToolCallsMarker = ":::TOOL_CALLS:::"

// ToolUsePlaceholder is stored as the visible text of an assistant turn that
// made tool calls without saying anything.
const ToolUsePlaceholder = "🤖 [Thinking/Tool Use]"

// SplitContent separates persisted assistant content into its visible text
// and tool calls. Content without the marker is returned unchanged. A tail
// that fails to parse yields the visible text and the parse error.
func SplitContent(content string) (string, []protocol.ToolCall, error) {
	visible, tail, found := strings.Cut(content, ToolCallsMarker)
	if !found {
		return content, nil, nil
	}
	visible = strings.TrimSpace(visible)

	var calls []protocol.ToolCall
	if err := json.Unmarshal([]byte(tail), &calls); err != nil {
		return visible, nil, err
	}
	return visible, calls, nil
}
