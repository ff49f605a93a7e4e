package session

import (
	"slices"

	"github.com/tailored-agentic-units/streamchat/core/event"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

// outcome records what a transition did, for observers.
type outcome struct {
	committed *protocol.Turn
	tool      *protocol.ToolActivity
	desync    bool
	init      *event.Init
}

// Reduce applies one decoded event to s and returns the resulting state.
func Reduce(s State, ev event.Event) State {
	next, _ := reduce(s, ev)
	return next
}

func reduce(s State, ev event.Event) (State, outcome) {
	r := reducer{s: s}
	ev.Accept(&r)
	return r.s, r.out
}

type reducer struct {
	s   State
	out outcome
}

func (r *reducer) VisitInit(ev event.Init) {
	r.out.init = &ev
}

func (r *reducer) VisitToken(ev event.Token) {
	r.s.Phase = PhaseStreaming
	r.s.Pending += ev.Content
}

// VisitToolStart commits any pending text as a thought before the tool
// begins: reasoning that precedes a tool call is never a final answer.
func (r *reducer) VisitToolStart(ev event.ToolStart) {
	if r.s.Pending != "" {
		r.commit(protocol.NewThought(r.s.Pending))
		r.s.Pending = ""
	}
	r.s.ActiveTool = protocol.NewToolActivity(ev.Tool, ev.Args)
}

func (r *reducer) VisitToolResult(ev event.ToolResult) {
	if r.s.ActiveTool == nil {
		r.out.desync = true
		return
	}

	finished := r.s.ActiveTool.Clone()
	output := ev.Output
	finished.Output = &output
	finished.Phase = protocol.ToolCompleted
	r.out.tool = finished

	r.commit(protocol.NewTurn(protocol.RoleTool, ev.Output))
	r.s.ActiveTool = nil
}

// VisitError keeps the buffer open: later tokens may still extend it.
func (r *reducer) VisitError(ev event.Error) {
	r.s.Pending += ErrorMarker(ev.Content)
	r.s.Phase = PhaseError
	r.failTool()
}

func (r *reducer) VisitDone(event.Done) {
	if r.s.Pending != "" {
		r.commit(protocol.NewTurn(protocol.RoleAssistant, r.s.Pending))
	}
	r.s.Pending = ""
	r.s.ActiveTool = nil
	r.s.Phase = PhaseConnected
}

func (r *reducer) commit(t protocol.Turn) {
	r.s.Turns = append(slices.Clip(r.s.Turns), t)
	r.out.committed = &t
}

func (r *reducer) failTool() {
	if r.s.ActiveTool == nil || r.s.ActiveTool.Phase != protocol.ToolRunning {
		return
	}
	failed := r.s.ActiveTool.Clone()
	failed.Phase = protocol.ToolError
	r.s.ActiveTool = failed
}

// Submit appends the user's turn optimistically, before the agent confirms
// anything, and moves the session into streaming.
func Submit(s State, text string) State {
	s.Turns = append(slices.Clip(s.Turns), protocol.NewTurn(protocol.RoleUser, text))
	s.Pending = ""
	s.ActiveTool = nil
	s.Phase = PhaseStreaming
	return s
}

// Open records that the transport for the current epoch is open.
func Open(s State) State {
	s.Phase = PhaseConnected
	return s
}

// Fail records a transport error. The pending buffer is retained so a later
// flush can still commit it.
func Fail(s State) State {
	s.Phase = PhaseError
	return s
}

// Close applies a transport closure. An abnormal closure commits any pending
// text with an interruption marker so partial output is never lost. A normal
// closure returns to idle and discards the pending buffer and any tool still
// in flight.
func Close(s State, normal bool) State {
	s, _ = closeState(s, normal)
	return s
}

func closeState(s State, normal bool) (State, outcome) {
	r := reducer{s: s}
	if normal {
		r.s.Pending = ""
		r.s.ActiveTool = nil
		r.s.Phase = PhaseIdle
		return r.s, r.out
	}

	if r.s.Pending != "" {
		r.commit(protocol.NewTurn(protocol.RoleAssistant, r.s.Pending+InterruptedMarker))
		r.s.Pending = ""
	}
	r.failTool()
	r.s.Phase = PhaseError
	return r.s, r.out
}
