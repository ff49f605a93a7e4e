package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer dials gorilla/websocket connections.
type WebSocketDialer struct {
	dialer *websocket.Dialer
}

// WebSocketOption configures a WebSocketDialer.
type WebSocketOption func(*WebSocketDialer)

// WithHandshakeTimeout bounds the opening handshake. Zero means no limit.
func WithHandshakeTimeout(d time.Duration) WebSocketOption {
	return func(w *WebSocketDialer) { w.dialer.HandshakeTimeout = d }
}

// NewWebSocketDialer creates a Dialer backed by gorilla/websocket.
func NewWebSocketDialer(opts ...WebSocketOption) *WebSocketDialer {
	w := &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	ws, resp, err := w.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &wsConn{ws: ws}, nil
}

// wsConn serialises writers; gorilla allows one concurrent writer and one
// concurrent reader.
type wsConn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetWriteDeadline(deadline)
		defer c.ws.SetWriteDeadline(time.Time{})
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *wsConn) Receive() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err == nil {
		return data, nil
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
	}
	if errors.Is(err, net.ErrClosed) {
		return nil, ErrClosed
	}
	return nil, err
}

// Close sends a close frame and releases the socket without waiting for the
// peer's reply.
func (c *wsConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(code, reason)
	werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	cerr := c.ws.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return errors.Join(fmt.Errorf("write close frame: %w", werr), cerr)
	}
	return cerr
}
