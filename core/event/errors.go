package event

import "errors"

// Sentinel errors returned by Decode. Neither is fatal to the connection.
var (
	ErrMalformed   = errors.New("malformed frame")
	ErrUnknownType = errors.New("unknown event type")
)
