// Package protocol defines the conversation data model shared by the
// decoder, the session aggregator, the thought classifier, and the
// outbound dispatcher.
package protocol

import (
	"encoding/json"
	"slices"
)

// Role identifies the sender of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolCall is a tool invocation recorded alongside a persisted assistant turn.
// Fields are flat (ID, Name, Arguments). UnmarshalJSON accepts the nested
// function format ({function: {name, arguments}}), the flat format, and the
// agent store's format where args is a JSON object.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewToolCall creates a ToolCall from its flat fields.
func NewToolCall(id, name, arguments string) ToolCall {
	return ToolCall{ID: id, Name: name, Arguments: arguments}
}

// UnmarshalJSON handles the nested, flat, and object-args formats.
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Args     json.RawMessage `json:"args"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
		Arguments string `json:"arguments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	tc.ID = raw.ID
	switch {
	case raw.Function.Name != "":
		tc.Name = raw.Function.Name
		tc.Arguments = raw.Function.Arguments
	case len(raw.Args) > 0:
		tc.Name = raw.Name
		tc.Arguments = string(raw.Args)
	default:
		tc.Name = raw.Name
		tc.Arguments = raw.Arguments
	}
	return nil
}

// Turn is the atomic, immutable unit of a conversation. IsThought is only
// meaningful for assistant turns: it marks intermediate reasoning that was
// superseded by a tool call or further assistant output.
//
// ToolCalls is populated only for turns loaded from persisted history.
type Turn struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	IsThought bool       `json:"isThought,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewTurn creates a Turn with the given role and content.
//
// Example:
//
//	t := protocol.NewTurn(protocol.RoleUser, "list the failing pods")
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content}
}

// NewThought creates an assistant turn labelled as intermediate reasoning.
func NewThought(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, IsThought: true}
}

// Clone returns a copy of t that shares no memory with it.
func (t Turn) Clone() Turn {
	t.ToolCalls = slices.Clone(t.ToolCalls)
	return t
}

// CloneTurns deep-copies a turn slice. A nil input yields a nil result.
func CloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	copied := make([]Turn, len(turns))
	for i, t := range turns {
		copied[i] = t.Clone()
	}
	return copied
}
