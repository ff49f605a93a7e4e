package connection

import "errors"

var (
	// ErrNotOpen is returned by Send when the current epoch has no open
	// transport.
	ErrNotOpen = errors.New("connection: not open")

	// ErrShutdown is returned after Shutdown has been called.
	ErrShutdown = errors.New("connection: manager shut down")
)
