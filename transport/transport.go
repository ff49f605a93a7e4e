// Package transport abstracts the duplex, message-oriented connection the
// session runs over. Conn and Dialer are the only capabilities the rest of
// the module depends on; the WebSocket implementation lives in websocket.go
// and a scripted in-memory one in transport/mock.
package transport

import "context"

// Conn is one open duplex connection carrying whole text frames.
//
// Receive blocks until a frame arrives or the connection ends. When the
// connection ends Receive returns an error, a *CloseError when the peer sent
// a close frame. Calling Close unblocks a pending Receive.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Receive() ([]byte, error)
	Close(code int, reason string) error
}

// Dialer opens a Conn to a URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}
