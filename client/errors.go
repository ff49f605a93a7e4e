package client

import (
	"errors"

	"github.com/tailored-agentic-units/streamchat/dispatch"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("client: closed")

	// ErrEmptyInput is returned by Send for blank text.
	ErrEmptyInput = errors.New("client: empty input")

	// ErrBusy is returned by Send while the agent is still answering.
	ErrBusy = errors.New("client: reply in progress")

	// ErrNotConnected is returned by Send and Cancel while the connection is
	// not open. Send has already started a reconnect; the text was not sent.
	ErrNotConnected = dispatch.ErrNotConnected
)
