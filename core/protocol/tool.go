package protocol

// ToolPhase is the lifecycle stage of a live tool invocation.
type ToolPhase string

const (
	ToolRunning   ToolPhase = "running"
	ToolCompleted ToolPhase = "completed"
	ToolError     ToolPhase = "error"
)

// ToolActivity describes the tool invocation currently in flight. It exists
// only between a tool_start event and its matching tool_result. Output is nil
// until the result arrives.
type ToolActivity struct {
	Tool   string    `json:"tool"`
	Args   string    `json:"args"`
	Output *string   `json:"output,omitempty"`
	Phase  ToolPhase `json:"phase"`
}

// NewToolActivity creates a running activity for the named tool.
func NewToolActivity(tool, args string) *ToolActivity {
	return &ToolActivity{Tool: tool, Args: args, Phase: ToolRunning}
}

// Clone returns an independent copy of a. A nil receiver yields nil.
func (a *ToolActivity) Clone() *ToolActivity {
	if a == nil {
		return nil
	}
	c := *a
	if a.Output != nil {
		out := *a.Output
		c.Output = &out
	}
	return &c
}
