// Package thought labels assistant turns loaded from persisted history as
// reasoning or final answer, reproducing the labels the live session assigns
// while streaming.
//
// The rule is positional: an assistant turn is a thought if and only if the
// next turn exists and is a tool or assistant turn. An interrupted reasoning
// fragment that was never followed by anything is therefore indistinguishable
// from a final answer, and is classified as one.
package thought

import "github.com/tailored-agentic-units/streamchat/core/protocol"

// Classify returns a copy of turns with IsThought recomputed for every
// assistant turn. Non-assistant turns are never thoughts. The input is not
// modified.
func Classify(turns []protocol.Turn) []protocol.Turn {
	classified := protocol.CloneTurns(turns)
	for i := range classified {
		classified[i].IsThought = classified[i].Role == protocol.RoleAssistant &&
			supersededAt(classified, i+1)
	}
	return classified
}

// IsThought reports whether the assistant turn at index i would be labelled
// a thought.
func IsThought(turns []protocol.Turn, i int) bool {
	if i < 0 || i >= len(turns) || turns[i].Role != protocol.RoleAssistant {
		return false
	}
	return supersededAt(turns, i+1)
}

func supersededAt(turns []protocol.Turn, next int) bool {
	if next >= len(turns) {
		return false
	}
	switch turns[next].Role {
	case protocol.RoleTool, protocol.RoleAssistant:
		return true
	}
	return false
}
