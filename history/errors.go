package history

import "errors"

var (
	// ErrNotFound is returned when the store has no conversation with the
	// requested id.
	ErrNotFound = errors.New("history: conversation not found")

	// ErrUnexpectedStatus is wrapped with the status line of any other
	// non-success response.
	ErrUnexpectedStatus = errors.New("history: unexpected status")
)
