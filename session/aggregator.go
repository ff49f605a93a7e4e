package session

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/streamchat/core/event"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/observability"
)

// InitHandler receives the conversation identifier (and optional title)
// announced by the agent. It is the hook for whatever persists or selects the
// active conversation.
type InitHandler func(conversationID, title string)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInitHandler sets the receiver of Init events.
func WithInitHandler(h InitHandler) Option {
	return func(a *Aggregator) { a.onInit = h }
}

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// Aggregator owns the State of one session, bound to one connection epoch at
// a time. It is not safe for concurrent use: a single event loop drives it,
// and other goroutines only ever see Snapshot copies.
type Aggregator struct {
	state    State
	epoch    uint64
	loaded   int
	onInit   InitHandler
	observer observability.Observer
}

// NewAggregator creates an Aggregator with an empty State bound to epoch.
func NewAggregator(epoch uint64, opts ...Option) *Aggregator {
	a := &Aggregator{
		state:    NewState(),
		epoch:    epoch,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Epoch returns the connection epoch the Aggregator is bound to.
func (a *Aggregator) Epoch() uint64 {
	return a.epoch
}

// Rebind moves the session onto a newer epoch of the same target, as after a
// lazy reconnect. Committed turns are kept.
func (a *Aggregator) Rebind(epoch uint64) {
	a.epoch = epoch
}

// Reset discards the session and binds an empty State to epoch. It is the
// only operation that removes committed turns.
func (a *Aggregator) Reset(ctx context.Context, epoch uint64) {
	dropped := len(a.state.Turns)
	a.state = NewState()
	a.epoch = epoch
	a.loaded = 0
	a.emit(ctx, EventReset, observability.LevelVerbose, map[string]any{
		"dropped_turns": dropped,
	})
}

// Load places turns read from persisted history ahead of the turns committed
// live since Reset. A later Load replaces the earlier history only. The live
// phase, tool, and buffer are untouched.
func (a *Aggregator) Load(turns []protocol.Turn) {
	live := a.state.Turns[a.loaded:]
	merged := make([]protocol.Turn, 0, len(turns)+len(live))
	merged = append(merged, protocol.CloneTurns(turns)...)
	merged = append(merged, live...)
	a.state.Turns = merged
	a.loaded = len(turns)
}

// Apply reduces one decoded event into the session.
func (a *Aggregator) Apply(ctx context.Context, ev event.Event) {
	next, out := reduce(a.state, ev)
	a.state = next
	a.report(ctx, out)
}

// Submit records the user's text as a committed turn and returns the full
// transcript to transmit.
func (a *Aggregator) Submit(text string) []protocol.Turn {
	a.state = Submit(a.state, text)
	return protocol.CloneTurns(a.state.Turns)
}

// Open records that the transport is open.
func (a *Aggregator) Open() {
	a.state = Open(a.state)
}

// Fail records a transport error.
func (a *Aggregator) Fail() {
	a.state = Fail(a.state)
}

// Close applies a transport closure; see Close.
func (a *Aggregator) Close(ctx context.Context, normal bool) {
	next, out := closeState(a.state, normal)
	a.state = next
	a.report(ctx, out)
}

// Snapshot returns a deep copy of the current State.
func (a *Aggregator) Snapshot() State {
	return a.state.Clone()
}

// Turns returns a copy of the committed turns.
func (a *Aggregator) Turns() []protocol.Turn {
	return protocol.CloneTurns(a.state.Turns)
}

// Phase returns the current phase.
func (a *Aggregator) Phase() Phase {
	return a.state.Phase
}

func (a *Aggregator) report(ctx context.Context, out outcome) {
	if out.init != nil {
		a.emit(ctx, EventInit, observability.LevelInfo, map[string]any{
			"conversation_id": out.init.ConversationID,
			"title":           out.init.Title,
		})
		if a.onInit != nil {
			a.onInit(out.init.ConversationID, out.init.Title)
		}
	}

	if out.desync {
		a.emit(ctx, EventDesync, observability.LevelWarning, map[string]any{
			"reason": "tool_result without active tool",
		})
	}

	if out.tool != nil {
		a.emit(ctx, EventToolComplete, observability.LevelVerbose, map[string]any{
			"tool":          out.tool.Tool,
			"output_length": len(*out.tool.Output),
		})
	}

	if out.committed != nil {
		a.emit(ctx, EventCommit, observability.LevelVerbose, map[string]any{
			"role":           string(out.committed.Role),
			"is_thought":     out.committed.IsThought,
			"content_length": len(out.committed.Content),
			"turns":          len(a.state.Turns),
		})
	}
}

func (a *Aggregator) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["epoch"] = a.epoch
	a.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "session.Aggregator",
		Data:      data,
	})
}
