// Package dispatch builds and sends the outbound frames of the session
// protocol: the full-transcript user request and the stop control frame.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/streamchat/connection"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/observability"
)

// Link is the part of the connection manager the dispatcher needs.
type Link interface {
	State() connection.State
	Reconnect() uint64
	Send(ctx context.Context, data []byte) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher sends outbound frames over a Link.
type Dispatcher struct {
	link     Link
	cfg      Config
	observer observability.Observer
}

// New creates a Dispatcher. Zero fields of cfg take their defaults.
func New(link Link, cfg Config, opts ...Option) *Dispatcher {
	merged := DefaultConfig()
	merged.Merge(&cfg)

	d := &Dispatcher{
		link:     link,
		cfg:      merged,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Model returns the model identifier sent with every request.
func (d *Dispatcher) Model() string {
	return d.cfg.Model
}

// EnsureOpen returns nil when the connection is open. Otherwise it starts one
// reconnect, unless a dial is already in flight, and returns ErrNotConnected.
// The caller must not retry on the user's behalf.
func (d *Dispatcher) EnsureOpen(ctx context.Context) error {
	switch d.link.State() {
	case connection.StateOpen:
		return nil
	case connection.StateConnecting:
		return ErrNotConnected
	}

	epoch := d.link.Reconnect()
	d.emit(ctx, EventReconnect, observability.LevelInfo, map[string]any{
		"epoch": epoch,
	})
	return ErrNotConnected
}

// Transmit sends the full transcript and the configured model as one frame.
// Only role, content, and the thought flag go on the wire.
func (d *Dispatcher) Transmit(ctx context.Context, transcript []protocol.Turn) error {
	messages := make([]protocol.Turn, len(transcript))
	for i, t := range transcript {
		messages[i] = protocol.Turn{Role: t.Role, Content: t.Content, IsThought: t.IsThought}
	}

	data, err := json.Marshal(protocol.UserRequest{Messages: messages, Model: d.cfg.Model})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := d.send(ctx, data); err != nil {
		return err
	}

	d.emit(ctx, EventTransmit, observability.LevelVerbose, map[string]any{
		"turns": len(messages),
		"model": d.cfg.Model,
		"bytes": len(data),
	})
	return nil
}

// Cancel asks the agent to stop generating. Nothing local changes: the
// session settles when the agent answers with error, done, or a closure.
func (d *Dispatcher) Cancel(ctx context.Context) error {
	data, err := json.Marshal(protocol.NewStopFrame())
	if err != nil {
		return fmt.Errorf("encode stop frame: %w", err)
	}
	if err := d.send(ctx, data); err != nil {
		return err
	}

	d.emit(ctx, EventCancel, observability.LevelInfo, nil)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, data []byte) error {
	err := d.link.Send(ctx, data)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, connection.ErrNotOpen):
		return ErrNotConnected
	default:
		return fmt.Errorf("send frame: %w", err)
	}
}

func (d *Dispatcher) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	d.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "dispatch.Dispatcher",
		Data:      data,
	})
}
