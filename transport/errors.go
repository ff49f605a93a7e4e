package transport

import "errors"

var (
	// ErrClosed is returned by Send on a connection that has been closed.
	ErrClosed = errors.New("transport: connection closed")
)
