// Package session aggregates decoded wire events and user input into the
// authoritative, ordered list of conversation turns.
//
// Reduce and the Submit/Open/Fail/Close helpers are pure: they never mutate
// the State they are given. Aggregator owns one State for one connection
// epoch and is driven by a single event loop.
package session

import "github.com/tailored-agentic-units/streamchat/core/protocol"

// Phase is the coarse connection/streaming status shown to the user.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseConnected Phase = "connected"
	PhaseStreaming Phase = "streaming"
	PhaseError     Phase = "error"
)

// InterruptedMarker is appended to partial output committed after an
// abnormal connection closure.
const InterruptedMarker = "\n\n[connection interrupted]"

// ErrorMarker formats the inline marker appended to the pending buffer when
// the agent reports an error.
func ErrorMarker(content string) string {
	return "\n[Error: " + content + "]"
}

// State is the conversation as seen by the client: committed turns, the
// current phase, the tool in flight, and the not-yet-committed assistant text.
type State struct {
	Turns      []protocol.Turn
	Phase      Phase
	ActiveTool *protocol.ToolActivity
	Pending    string
}

// NewState returns the empty state of a freshly selected target.
func NewState() State {
	return State{Phase: PhaseIdle}
}

// Clone returns a deep copy of s, safe to hand to other goroutines.
func (s State) Clone() State {
	return State{
		Turns:      protocol.CloneTurns(s.Turns),
		Phase:      s.Phase,
		ActiveTool: s.ActiveTool.Clone(),
		Pending:    s.Pending,
	}
}

// Streaming reports whether the agent is producing output or a tool is running.
func (s State) Streaming() bool {
	return s.Phase == PhaseStreaming || s.ActiveTool != nil
}
