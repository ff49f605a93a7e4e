package thought

import "github.com/tailored-agentic-units/streamchat/core/protocol"

// ThoughtSeparator joins consecutive reasoning fragments merged by Present.
const ThoughtSeparator = "\n\n"

// Present prepares classified turns for display. Tool turns are dropped and
// runs of adjacent thoughts left behind are merged into one turn. The stored
// transcript keeps them distinct; Present always works on a copy.
func Present(turns []protocol.Turn) []protocol.Turn {
	var shown []protocol.Turn
	for _, t := range turns {
		if t.Role == protocol.RoleTool {
			continue
		}

		if n := len(shown); n > 0 && t.IsThought && shown[n-1].IsThought {
			prev := &shown[n-1]
			prev.Content += ThoughtSeparator + t.Content
			prev.ToolCalls = append(prev.ToolCalls, t.ToolCalls...)
			continue
		}

		shown = append(shown, t.Clone())
	}
	return shown
}
