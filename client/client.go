// Package client composes the connection manager, decoder, session
// aggregator, thought classifier, and dispatcher into one conversation
// client driven by a single event loop.
//
// Every input (connection signals, user commands, history results) is
// handled serially on the loop goroutine, so the session state has exactly
// one writer. Callers observe it through Snapshot or a StateListener.
//
//	c, err := client.New(&cfg)
//	defer c.Close()
//	c.Resume(ctx)
//	err = c.Send(ctx, "why is the api pod restarting?")
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/streamchat/connection"
	"github.com/tailored-agentic-units/streamchat/core/event"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/dispatch"
	"github.com/tailored-agentic-units/streamchat/history"
	"github.com/tailored-agentic-units/streamchat/observability"
	"github.com/tailored-agentic-units/streamchat/session"
	"github.com/tailored-agentic-units/streamchat/store"
	"github.com/tailored-agentic-units/streamchat/thought"
	"github.com/tailored-agentic-units/streamchat/transport"
)

// StateListener receives a private copy of the session state after every
// change. It runs on the event loop and must not block.
type StateListener func(session.State)

// InitListener receives the conversation id and title the agent assigns.
// It runs on the event loop and must not block.
type InitListener func(conversationID, title string)

// HistorySource loads the persisted turns of a conversation. It must report
// a missing conversation with an error wrapping history.ErrNotFound.
type HistorySource interface {
	Fetch(ctx context.Context, id string) ([]protocol.Turn, error)
}

// Option configures a Client after config-driven initialization.
type Option func(*Client)

// WithObserver adds o alongside the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(c *Client) { c.extra = append(c.extra, o) }
}

// WithDialer overrides the WebSocket dialer.
func WithDialer(d transport.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithHistory overrides the REST history client. A nil source disables
// history loading.
func WithHistory(h HistorySource) Option {
	return func(c *Client) {
		c.history = h
		c.historySet = true
	}
}

// WithStore overrides the config-created store.
func WithStore(s store.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithStateListener registers a StateListener.
func WithStateListener(l StateListener) Option {
	return func(c *Client) { c.onState = l }
}

// WithConversationInit registers an InitListener.
func WithConversationInit(l InitListener) Option {
	return func(c *Client) { c.onInit = l }
}

// Client is one conversation session with the agent.
type Client struct {
	id         uuid.UUID
	observer   observability.Observer
	extra      []observability.Observer
	dialer     transport.Dialer
	history    HistorySource
	historySet bool
	store      store.Store
	onState    StateListener
	onInit     InitListener

	manager    *connection.Manager
	dispatcher *dispatch.Dispatcher
	selection  *store.Selection

	// Owned by the loop goroutine.
	agg        *session.Aggregator
	selected   string
	generation uint64

	latest     atomic.Pointer[session.State]
	selectedID atomic.Pointer[string]

	cmds      chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Client from configuration and starts its event loop. No
// connection is made until Resume, Select, or NewConversation.
func New(cfg *Config, opts ...Option) (*Client, error) {
	merged := DefaultConfig()
	merged.Merge(cfg)

	observer, err := observability.GetObserver(merged.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	c := &Client{
		id:       uuid.Must(uuid.NewV7()),
		observer: observer,
		cmds:     make(chan func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.extra) > 0 {
		c.observer = observability.NewMultiObserver(append([]observability.Observer{observer}, c.extra...)...)
	}

	if c.dialer == nil {
		c.dialer = transport.NewWebSocketDialer()
	}
	if !c.historySet {
		c.history = history.New(merged.History, history.WithObserver(c.observer))
	}
	if c.store == nil {
		c.store = store.New(&merged.Store)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.manager = connection.New(c.ctx, c.dialer, merged.Connection,
		connection.WithObserver(c.observer))
	c.dispatcher = dispatch.New(c.manager, merged.Dispatch,
		dispatch.WithObserver(c.observer))
	c.selection = store.NewSelection(c.store)
	c.agg = session.NewAggregator(0,
		session.WithObserver(c.observer),
		session.WithInitHandler(c.conversationInit))

	c.setSelected("")
	c.publish()

	c.wg.Add(1)
	go c.run()
	return c, nil
}

// ID identifies this client instance in observer events.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Resume reconnects to the conversation remembered in the store, or starts
// a new one when none is remembered.
func (c *Client) Resume(ctx context.Context) error {
	id, err := c.selection.Get(ctx)
	if err != nil {
		c.emit(ctx, EventSelectionFailed, observability.LevelWarning, map[string]any{
			"error": err.Error(),
		})
		id = ""
	}
	return c.Select(ctx, id)
}

// Select switches to conversation id: the session is reset, a connection
// for id is opened, and its persisted history is loaded in the background.
// An empty id is the same as NewConversation.
func (c *Client) Select(ctx context.Context, id string) error {
	return c.do(ctx, func() error {
		c.switchTo(ctx, id)
		return nil
	})
}

// NewConversation resets the session and connects without a conversation
// id. The agent assigns one when the first message is sent.
func (c *Client) NewConversation(ctx context.Context) error {
	return c.Select(ctx, "")
}

// Send submits text as the next user turn and transmits the transcript.
// While the connection is not open it returns ErrNotConnected at once,
// having started a reconnect; the text is not queued or resent.
func (c *Client) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}

	return c.do(ctx, func() error {
		if c.agg.Phase() == session.PhaseStreaming {
			return ErrBusy
		}
		if err := c.dispatcher.EnsureOpen(ctx); err != nil {
			c.emit(ctx, EventSendRejected, observability.LevelWarning, map[string]any{
				"error": err.Error(),
			})
			return err
		}

		transcript := c.agg.Submit(text)
		c.publish()

		if err := c.dispatcher.Transmit(ctx, transcript); err != nil {
			c.agg.Fail()
			c.publish()
			return err
		}

		c.emit(ctx, EventSend, observability.LevelVerbose, map[string]any{
			"turns": len(transcript),
		})
		return nil
	})
}

// Cancel asks the agent to stop the reply in progress. The session settles
// only when the agent's error, done, or closure arrives.
func (c *Client) Cancel(ctx context.Context) error {
	return c.do(ctx, func() error {
		return c.dispatcher.Cancel(ctx)
	})
}

// Snapshot returns a copy of the latest session state.
func (c *Client) Snapshot() session.State {
	return c.latest.Load().Clone()
}

// SelectedID returns the active conversation id, "" for a conversation the
// agent has not yet named.
func (c *Client) SelectedID() string {
	return *c.selectedID.Load()
}

// Close stops the event loop and the connection. It is safe to call more
// than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.manager.Shutdown()
		c.wg.Wait()
	})
	return nil
}

func (c *Client) run() {
	defer c.wg.Done()

	signals := c.manager.Signals()
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.cmds:
			fn()
		case sig, ok := <-signals:
			if !ok {
				return
			}
			c.handle(sig)
		}
	}
}

// do runs fn on the loop and waits for its result.
func (c *Client) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case c.cmds <- func() { errc <- fn() }:
	case <-c.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-c.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn on the loop without waiting.
func (c *Client) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.ctx.Done():
	}
}

// handle applies one connection signal. Signals of the epoch the session is
// bound to are applied even after a lazy reconnect has started a newer one,
// so that epoch's last frames and its closure still settle the buffer. The
// manager delivers them before any signal of the newer epoch.
func (c *Client) handle(sig connection.Signal) {
	switch {
	case sig.Epoch == c.agg.Epoch():
	case c.manager.IsCurrent(sig.Epoch):
		c.agg.Rebind(sig.Epoch)
	default:
		c.emit(c.ctx, EventStaleDropped, observability.LevelVerbose, map[string]any{
			"epoch":  sig.Epoch,
			"signal": sig.Kind.String(),
		})
		return
	}

	switch sig.Kind {
	case connection.SignalOpen:
		c.agg.Open()
	case connection.SignalFrame:
		ev, err := event.Decode(sig.Data)
		if err != nil {
			c.emit(c.ctx, EventDecodeFailed, observability.LevelWarning, map[string]any{
				"epoch": sig.Epoch,
				"error": err.Error(),
				"bytes": len(sig.Data),
			})
			return
		}
		c.agg.Apply(c.ctx, ev)
	case connection.SignalError:
		c.agg.Fail()
	case connection.SignalClose:
		c.agg.Close(c.ctx, sig.Normal)
	}
	c.publish()
}

func (c *Client) switchTo(ctx context.Context, id string) {
	c.setSelected(id)
	c.generation++
	c.persistSelection(ctx, id)

	epoch := c.manager.Connect(id)
	c.agg.Reset(ctx, epoch)
	c.publish()

	c.emit(ctx, EventSelect, observability.LevelInfo, map[string]any{
		"conversation_id": id,
		"epoch":           epoch,
	})

	if id != "" && c.history != nil {
		c.fetch(id, c.generation)
	}
}

func (c *Client) fetch(id string, generation uint64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		turns, err := c.history.Fetch(c.ctx, id)
		c.post(func() { c.loaded(id, generation, turns, err) })
	}()
}

// loaded applies a history result unless the selection moved on since the
// fetch started. Loaded turns go ahead of any turns committed live since
// the selection.
func (c *Client) loaded(id string, generation uint64, turns []protocol.Turn, err error) {
	switch {
	case generation != c.generation:
		c.emit(c.ctx, EventStaleDropped, observability.LevelVerbose, map[string]any{
			"conversation_id": id,
			"source":          "history",
		})
	case errors.Is(err, history.ErrNotFound):
		c.emit(c.ctx, EventHistoryMissing, observability.LevelWarning, map[string]any{
			"conversation_id": id,
		})
		c.switchTo(c.ctx, "")
	case err != nil:
		c.emit(c.ctx, EventHistoryFailed, observability.LevelWarning, map[string]any{
			"conversation_id": id,
			"error":           err.Error(),
		})
	default:
		c.agg.Load(thought.Classify(turns))
		c.publish()
		c.emit(c.ctx, EventHistoryLoaded, observability.LevelInfo, map[string]any{
			"conversation_id": id,
			"turns":           len(turns),
		})
	}
}

// conversationInit runs inside Aggregator.Apply. The connection stays as it
// is; only the target of the next reconnect and the stored selection move.
func (c *Client) conversationInit(id, title string) {
	if id != c.selected {
		c.generation++
	}
	c.setSelected(id)
	c.manager.Retarget(id)
	c.persistSelection(c.ctx, id)

	c.emit(c.ctx, EventConversationID, observability.LevelInfo, map[string]any{
		"conversation_id": id,
		"title":           title,
	})
	if c.onInit != nil {
		c.onInit(id, title)
	}
}

func (c *Client) setSelected(id string) {
	c.selected = id
	c.selectedID.Store(&id)
}

func (c *Client) persistSelection(ctx context.Context, id string) {
	if err := c.selection.Set(ctx, id); err != nil {
		c.emit(ctx, EventSelectionFailed, observability.LevelWarning, map[string]any{
			"conversation_id": id,
			"error":           err.Error(),
		})
	}
}

func (c *Client) publish() {
	s := c.agg.Snapshot()
	c.latest.Store(&s)
	if c.onState != nil {
		c.onState(s.Clone())
	}
}

func (c *Client) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["client_id"] = c.id.String()
	c.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "client.Client",
		Data:      data,
	})
}
