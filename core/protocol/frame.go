package protocol

// DefaultModel is the model identifier sent with user turns when none is
// configured.
const DefaultModel = "qwen3-coder-plus"

// UserRequest is the outbound frame carrying the full transcript of the
// conversation, including the newly submitted user turn.
type UserRequest struct {
	Messages []Turn `json:"messages"`
	Model    string `json:"model"`
}

// ControlFrame is an outbound control message. The only control type the
// agent understands is "stop".
type ControlFrame struct {
	Type string `json:"type"`
}

// ControlStop requests that the agent stop generating.
const ControlStop = "stop"

// NewStopFrame creates the control frame that requests generation stop.
func NewStopFrame() ControlFrame {
	return ControlFrame{Type: ControlStop}
}
