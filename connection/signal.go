package connection

import "fmt"

// State is the lifecycle state of the manager's current epoch.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosing      State = "closing"
)

// SignalKind identifies what happened to a connection.
type SignalKind int

const (
	SignalOpen SignalKind = iota
	SignalFrame
	SignalError
	SignalClose
)

func (k SignalKind) String() string {
	switch k {
	case SignalOpen:
		return "open"
	case SignalFrame:
		return "frame"
	case SignalError:
		return "error"
	case SignalClose:
		return "close"
	default:
		return fmt.Sprintf("SignalKind(%d)", int(k))
	}
}

// Signal is one lifecycle event of the connection opened for Epoch.
// Consumers must drop signals whose epoch is no longer current.
//
// Data is set for SignalFrame, Err for SignalError, and Code, Reason, and
// Normal for SignalClose.
type Signal struct {
	Epoch  uint64
	Kind   SignalKind
	Data   []byte
	Err    error
	Code   int
	Reason string
	Normal bool
}
