package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/session"
)

const toolOutputPreview = 200

// renderer prints each committed turn once, in order, plus one line per
// tool start and phase change.
type renderer struct {
	out   io.Writer
	shown int
	tool  *protocol.ToolActivity
	phase session.Phase
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, phase: session.PhaseIdle}
}

func (r *renderer) render(s session.State) {
	if len(s.Turns) < r.shown {
		r.shown = 0
		fmt.Fprintln(r.out, dimStyle.Render("--- conversation reset ---"))
	}
	for _, t := range s.Turns[r.shown:] {
		fmt.Fprintln(r.out, formatTurn(t))
	}
	r.shown = len(s.Turns)

	if s.ActiveTool != nil && (r.tool == nil || r.tool.Tool != s.ActiveTool.Tool || r.tool.Args != s.ActiveTool.Args) {
		fmt.Fprintln(r.out, toolStyle.Render(fmt.Sprintf("> %s(%s)", s.ActiveTool.Tool, s.ActiveTool.Args)))
	}
	r.tool = s.ActiveTool

	if s.Phase != r.phase {
		switch s.Phase {
		case session.PhaseError:
			fmt.Fprintln(r.out, errorStyle.Render("! connection error"))
		case session.PhaseConnected:
			if r.phase != session.PhaseStreaming {
				fmt.Fprintln(r.out, dimStyle.Render("connected"))
			}
		case session.PhaseIdle:
			fmt.Fprintln(r.out, dimStyle.Render("disconnected"))
		}
		r.phase = s.Phase
	}
}

func formatTurn(t protocol.Turn) string {
	switch {
	case t.Role == protocol.RoleUser:
		return userStyle.Render("you: ") + t.Content
	case t.Role == protocol.RoleTool:
		return toolStyle.Render("  = ") + preview(t.Content)
	case t.IsThought:
		var b strings.Builder
		b.WriteString(thoughtStyle.Render("thinking: " + t.Content))
		for _, call := range t.ToolCalls {
			b.WriteString("\n")
			b.WriteString(toolStyle.Render(fmt.Sprintf("> %s(%s)", call.Name, call.Arguments)))
		}
		return b.String()
	default:
		return assistantStyle.Render("agent: " + t.Content)
	}
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > toolOutputPreview {
		return s[:toolOutputPreview] + "..."
	}
	return s
}
