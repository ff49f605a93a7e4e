// Package event decodes inbound wire frames into a closed set of typed
// events.
//
// Event is sealed: only the six kinds declared here implement it. Consumers
// dispatch through Visitor, which has one method per kind, so adding a kind
// is a compile-time change for every consumer rather than a silent default
// branch.
//
//	ev, err := event.Decode(frame)
//	if err != nil {
//		// log and drop; the connection stays open
//	}
//	ev.Accept(visitor)
package event

// Type is the wire discriminator carried in each frame's "type" field.
type Type string

const (
	TypeInit       Type = "init"
	TypeToken      Type = "token"
	TypeToolStart  Type = "tool_start"
	TypeToolResult Type = "tool_result"
	TypeError      Type = "error"
	TypeDone       Type = "done"
)

// Event is one decoded inbound frame.
type Event interface {
	// Type returns the wire discriminator of the event.
	Type() Type
	// Accept calls the Visitor method matching the event's kind.
	Accept(v Visitor)

	sealed()
}

// Visitor handles each event kind. Implementations must handle every kind.
type Visitor interface {
	VisitInit(Init)
	VisitToken(Token)
	VisitToolStart(ToolStart)
	VisitToolResult(ToolResult)
	VisitError(Error)
	VisitDone(Done)
}

// Init announces the conversation the agent created or resumed for this
// connection. Title is empty when the agent sent none.
type Init struct {
	ConversationID string
	Title          string
}

// Token carries one incremental fragment of assistant output.
type Token struct {
	Content string
}

// ToolStart announces a tool invocation. Args is the argument payload as text.
type ToolStart struct {
	Tool string
	Args string
}

// ToolResult carries the output of the most recently started tool.
type ToolResult struct {
	Output string
}

// Error reports an agent-side failure. The stream may continue afterwards.
type Error struct {
	Content string
}

// Done marks the end of the agent's reply to the current user turn.
type Done struct{}

func (Init) Type() Type       { return TypeInit }
func (Token) Type() Type      { return TypeToken }
func (ToolStart) Type() Type  { return TypeToolStart }
func (ToolResult) Type() Type { return TypeToolResult }
func (Error) Type() Type      { return TypeError }
func (Done) Type() Type       { return TypeDone }

func (e Init) Accept(v Visitor)       { v.VisitInit(e) }
func (e Token) Accept(v Visitor)      { v.VisitToken(e) }
func (e ToolStart) Accept(v Visitor)  { v.VisitToolStart(e) }
func (e ToolResult) Accept(v Visitor) { v.VisitToolResult(e) }
func (e Error) Accept(v Visitor)      { v.VisitError(e) }
func (e Done) Accept(v Visitor)       { v.VisitDone(e) }

func (Init) sealed()       {}
func (Token) sealed()      {}
func (ToolStart) sealed()  {}
func (ToolResult) sealed() {}
func (Error) sealed()      {}
func (Done) sealed()       {}
