// Package connection owns the lifecycle of the transport connection to the
// agent. Every Connect starts a new epoch; all signals produced by that
// connection carry the epoch so the consumer can discard late arrivals from
// superseded connections.
//
// The Manager never reconnects on its own. Reconnect exists for a caller
// that finds the connection closed at the moment it needs it.
package connection

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/tailored-agentic-units/streamchat/observability"
	"github.com/tailored-agentic-units/streamchat/transport"
)

// Option configures a Manager.
type Option func(*Manager)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// Manager dials, reads, and closes the connection for one client.
type Manager struct {
	cfg      Config
	dialer   transport.Dialer
	observer observability.Observer
	signals  *signalChannel[Signal]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	epoch   uint64
	state   State
	target  string
	conn    transport.Conn
	closing uint64
	stopped bool

	// done of the latest run and the cancel of its dial.
	last       chan struct{}
	cancelDial context.CancelFunc
}

// New creates a Manager that dials through dialer. The manager lives until
// ctx ends or Shutdown is called.
func New(ctx context.Context, dialer transport.Dialer, cfg Config, opts ...Option) *Manager {
	merged := DefaultConfig()
	merged.Merge(&cfg)

	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		cfg:      merged,
		dialer:   dialer,
		observer: observability.NoOpObserver{},
		ctx:      ctx,
		cancel:   cancel,
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.signals = newSignalChannel[Signal](ctx, merged.SignalBuffer)
	return m
}

// Signals delivers lifecycle signals in the order each epoch produced them.
// The channel is closed by Shutdown.
func (m *Manager) Signals() <-chan Signal {
	return m.signals.C()
}

// Next blocks for the next signal.
func (m *Manager) Next(ctx context.Context) (Signal, error) {
	return m.signals.Receive(ctx)
}

// Connect abandons any current connection, starts a new epoch, and dials
// target in the background. An empty target asks the agent for a new
// conversation. The new epoch is returned immediately; SignalOpen or
// SignalError/SignalClose follow on the signal channel.
func (m *Manager) Connect(target string) uint64 {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return 0
	}

	old := m.conn
	m.epoch++
	epoch := m.epoch
	m.target = target
	m.state = StateConnecting
	m.conn = nil

	if m.cancelDial != nil {
		m.cancelDial()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelDial = cancel
	prev, done := m.last, make(chan struct{})
	m.last = done

	m.wg.Add(1)
	m.mu.Unlock()

	if old != nil {
		old.Close(transport.CloseNormal, "superseded")
		m.emit(EventSuperseded, observability.LevelVerbose, epoch-1, nil)
	}

	endpoint := m.endpoint(target)
	m.emit(EventConnect, observability.LevelInfo, epoch, map[string]any{
		"target":   target,
		"endpoint": endpoint,
	})

	go m.run(ctx, cancel, epoch, endpoint, prev, done)
	return epoch
}

// Reconnect dials the most recent target again under a new epoch.
func (m *Manager) Reconnect() uint64 {
	m.mu.Lock()
	target := m.target
	m.mu.Unlock()
	return m.Connect(target)
}

// Retarget changes the target used by the next Reconnect without touching
// the current connection. It is how an agent-assigned conversation id
// becomes sticky.
func (m *Manager) Retarget(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = target
}

// Close shuts the current connection down gracefully. Its SignalClose is
// reported as normal with code 1000.
func (m *Manager) Close() error {
	m.mu.Lock()
	switch m.state {
	case StateDisconnected, StateClosing:
		m.mu.Unlock()
		return nil
	}
	m.closing = m.epoch
	m.state = StateClosing
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		// Still dialling; run closes the connection when the dial returns.
		return nil
	}
	return conn.Close(transport.CloseNormal, "")
}

// Shutdown closes the current connection, stops every goroutine the manager
// started, and closes the signal channel.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	m.cancel()
	if conn != nil {
		conn.Close(transport.CloseGoingAway, "shutdown")
	}
	m.wg.Wait()
	m.signals.Close()
}

// Send writes one frame on the current connection.
func (m *Manager) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrShutdown
	}
	if m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return ErrNotOpen
	}
	conn := m.conn
	m.mu.Unlock()

	return conn.Send(ctx, data)
}

// IsOpen reports whether the current epoch's connection is open.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOpen
}

// IsCurrent reports whether epoch is the latest one started.
func (m *Manager) IsCurrent(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return epoch == m.epoch
}

// Epoch returns the latest epoch.
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// State returns the lifecycle state of the latest epoch.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Target returns the target the next Reconnect would dial.
func (m *Manager) Target() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

func (m *Manager) endpoint(target string) string {
	if target == "" {
		return m.cfg.Endpoint
	}
	u, err := url.Parse(m.cfg.Endpoint)
	if err != nil {
		return m.cfg.Endpoint + "?conversation_id=" + url.QueryEscape(target)
	}
	q := u.Query()
	q.Set("conversation_id", target)
	u.RawQuery = q.Encode()
	return u.String()
}

// run dials and then reads until the connection ends. One run goroutine
// exists per epoch, so signals of an epoch are emitted in order, and no
// signal is emitted before the previous epoch's run has finished. A consumer
// therefore sees every signal of epoch N before any signal of epoch N+1.
func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, epoch uint64, endpoint string, prev, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)

	conn, err := m.dialer.Dial(ctx, endpoint)
	cancel()

	if !m.await(prev) {
		if conn != nil {
			conn.Close(transport.CloseGoingAway, "shutdown")
		}
		return
	}

	m.mu.Lock()
	switch {
	case epoch != m.epoch || m.stopped:
		m.mu.Unlock()
		if conn != nil {
			conn.Close(transport.CloseNormal, "superseded")
		}
		return
	case err != nil:
		m.state = StateDisconnected
		m.mu.Unlock()

		m.emit(EventDialFailed, observability.LevelWarning, epoch, map[string]any{
			"error": err.Error(),
		})
		m.signal(Signal{Epoch: epoch, Kind: SignalError, Err: err})
		m.signal(Signal{Epoch: epoch, Kind: SignalClose, Code: transport.CloseAbnormal, Reason: err.Error()})
		return
	case m.closing == epoch:
		m.state = StateDisconnected
		m.mu.Unlock()

		conn.Close(transport.CloseNormal, "")
		m.signal(Signal{Epoch: epoch, Kind: SignalClose, Code: transport.CloseNormal, Normal: true})
		return
	}
	m.conn = conn
	m.state = StateOpen
	m.mu.Unlock()

	m.emit(EventOpen, observability.LevelInfo, epoch, nil)
	if !m.signal(Signal{Epoch: epoch, Kind: SignalOpen}) {
		return
	}

	for {
		data, err := conn.Receive()
		if err != nil {
			m.closed(epoch, conn, err)
			return
		}
		if !m.signal(Signal{Epoch: epoch, Kind: SignalFrame, Data: data}) {
			return
		}
	}
}

func (m *Manager) closed(epoch uint64, conn transport.Conn, err error) {
	m.mu.Lock()
	intentional := m.closing == epoch
	if epoch == m.epoch && m.conn == conn {
		m.conn = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()

	code, reason, normal := transport.ClassifyClose(err)
	if intentional {
		code, reason, normal = transport.CloseNormal, "", true
	}

	var ce *transport.CloseError
	if !intentional && !errors.As(err, &ce) {
		m.signal(Signal{Epoch: epoch, Kind: SignalError, Err: err})
	}

	m.emit(EventClose, observability.LevelInfo, epoch, map[string]any{
		"code":   code,
		"reason": reason,
		"normal": normal,
	})
	m.signal(Signal{Epoch: epoch, Kind: SignalClose, Code: code, Reason: reason, Normal: normal})
}

// await blocks until the previous epoch's run has finished. It reports false
// when the manager is shut down first.
func (m *Manager) await(prev chan struct{}) bool {
	if prev == nil {
		return true
	}
	select {
	case <-prev:
		return true
	case <-m.ctx.Done():
		return false
	}
}

func (m *Manager) signal(s Signal) bool {
	return m.signals.Send(m.ctx, s) == nil
}

func (m *Manager) emit(typ observability.EventType, level observability.Level, epoch uint64, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["epoch"] = epoch
	m.observer.OnEvent(m.ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "connection.Manager",
		Data:      data,
	})
}
