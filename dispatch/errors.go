package dispatch

import "errors"

var (
	// ErrNotConnected is returned when a frame is requested while the
	// connection is not open. It is transient: a reconnect may already be
	// under way, but the rejected input is never resent.
	ErrNotConnected = errors.New("dispatch: not connected")
)
