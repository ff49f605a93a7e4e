// Package mock provides a scripted, in-memory transport for deterministic
// tests of everything above the wire.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/streamchat/transport"
)

// Dialer hands out Conns and records every dial attempt.
type Dialer struct {
	mu      sync.Mutex
	urls    []string
	conns   []*Conn
	failure error
	dialed  chan *Conn
}

// NewDialer creates a Dialer whose dials succeed until Fail is called.
func NewDialer() *Dialer {
	return &Dialer{dialed: make(chan *Conn, 64)}
}

// Fail makes subsequent dials return err. A nil err restores success.
func (d *Dialer) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failure = err
}

func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, url)
	if d.failure != nil {
		return nil, d.failure
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := NewConn()
	d.conns = append(d.conns, c)
	select {
	case d.dialed <- c:
	default:
	}
	return c, nil
}

// Dials returns the number of dial attempts, failed ones included.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

// URLs returns every dialled URL in order.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.urls)
}

// Next waits for the next successful dial and returns its Conn.
func (d *Dialer) Next(ctx context.Context) (*Conn, error) {
	select {
	case c := <-d.dialed:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type inbound struct {
	data []byte
	err  error
}

// Conn is an in-memory transport.Conn. Frames pushed by the test are
// received in order; Drop ends the stream with a close code after any frames
// already pushed.
type Conn struct {
	in   chan inbound
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	sent     [][]byte
	closedBy *transport.CloseError
}

// NewConn creates an open Conn.
func NewConn() *Conn {
	return &Conn{
		in:   make(chan inbound, 256),
		done: make(chan struct{}),
	}
}

// Push delivers one frame to the reader. It is a no-op once the Conn is
// closed.
func (c *Conn) Push(data []byte) {
	select {
	case c.in <- inbound{data: data}:
	case <-c.done:
	}
}

// PushString delivers one text frame.
func (c *Conn) PushString(frame string) {
	c.Push([]byte(frame))
}

// Drop simulates the peer ending the connection with code and reason.
func (c *Conn) Drop(code int, reason string) {
	c.Fail(&transport.CloseError{Code: code, Reason: reason})
}

// Fail ends the stream with an arbitrary error, as a network failure would.
func (c *Conn) Fail(err error) {
	select {
	case c.in <- inbound{err: err}:
	case <-c.done:
	}
}

func (c *Conn) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, slices.Clone(data))
	return nil
}

func (c *Conn) Receive() ([]byte, error) {
	select {
	case msg := <-c.in:
		if msg.err != nil {
			return nil, msg.err
		}
		return msg.data, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.closedBy
	}
}

func (c *Conn) Close(code int, reason string) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closedBy = &transport.CloseError{Code: code, Reason: reason}
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

// Sent returns copies of the frames written so far.
func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]byte, len(c.sent))
	for i, s := range c.sent {
		out[i] = slices.Clone(s)
	}
	return out
}

// Closed reports whether Close was called, and with which code.
func (c *Conn) Closed() (code int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closedBy == nil {
		return 0, false
	}
	return c.closedBy.Code, true
}
