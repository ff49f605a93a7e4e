package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/streamchat/chattest"
	"github.com/tailored-agentic-units/streamchat/client"
	"github.com/tailored-agentic-units/streamchat/connection"
	"github.com/tailored-agentic-units/streamchat/core/event"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/history"
	"github.com/tailored-agentic-units/streamchat/session"
	"github.com/tailored-agentic-units/streamchat/store"
)

type live struct {
	server *chattest.Server
	store  *store.MemoryStore
	cfg    *client.Config
}

func newLive(t *testing.T, opts ...chattest.Option) *live {
	t.Helper()
	srv := chattest.New(opts...)
	t.Cleanup(srv.Close)

	return &live{
		server: srv,
		store:  store.NewMemoryStore(),
		cfg: &client.Config{
			Observer:   "noop",
			Connection: connection.Config{Endpoint: srv.WebSocketURL()},
			History:    history.Config{BaseURL: srv.URL()},
		},
	}
}

// connect returns a client sharing the fixture's store. It is closed before
// the server.
func (l *live) connect(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(l.cfg, client.WithStore(l.store))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor(t *testing.T, c *client.Client, cond func(session.State) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(c.Snapshot()) },
		5*time.Second, 10*time.Millisecond)
}

func settled(n int) func(session.State) bool {
	return func(s session.State) bool {
		return s.Phase == session.PhaseConnected && len(s.Turns) == n
	}
}

func TestLive_EchoAndResume(t *testing.T) {
	l := newLive(t)
	ctx := context.Background()

	first := l.connect(t)
	require.NoError(t, first.NewConversation(ctx))
	waitFor(t, first, func(s session.State) bool { return s.Phase == session.PhaseConnected })

	require.NoError(t, first.Send(ctx, "hello agent"))
	waitFor(t, first, settled(2))

	assert.Equal(t, "echo: hello agent", first.Snapshot().Turns[1].Content)
	id := first.SelectedID()
	require.NotEmpty(t, id)
	assert.Len(t, l.server.Messages(id), 2)
	require.NoError(t, first.Close())

	second := l.connect(t)
	require.NoError(t, second.Resume(ctx))
	waitFor(t, second, settled(2))

	assert.Equal(t, id, second.SelectedID())
	assert.Equal(t, []string{"", id}, l.server.Dials())

	require.NoError(t, second.Send(ctx, "again"))
	waitFor(t, second, settled(4))
	req := l.server.Requests()[1]
	assert.Len(t, req.Messages, 3)
}

func TestLive_ToolTraceMatchesHistory(t *testing.T) {
	l := newLive(t, chattest.WithScript(func(string, protocol.UserRequest) chattest.Reply {
		return chattest.Reply{Events: []event.Event{
			event.Token{Content: "Checking pods."},
			event.ToolStart{Tool: "list_pods", Args: `{"namespace":"prod"}`},
			event.ToolResult{Output: "api-0 CrashLoopBackOff"},
			event.Token{Content: "api-0 is crash looping."},
			event.Done{},
		}}
	}))
	ctx := context.Background()

	streamed := l.connect(t)
	require.NoError(t, streamed.NewConversation(ctx))
	waitFor(t, streamed, func(s session.State) bool { return s.Phase == session.PhaseConnected })
	require.NoError(t, streamed.Send(ctx, "why is api down?"))
	waitFor(t, streamed, settled(4))

	reloaded := l.connect(t)
	require.NoError(t, reloaded.Select(ctx, streamed.SelectedID()))
	waitFor(t, reloaded, func(s session.State) bool { return len(s.Turns) == 4 })

	got, loaded := streamed.Snapshot().Turns, reloaded.Snapshot().Turns
	for i := range got {
		assert.Equal(t, got[i].Role, loaded[i].Role, "turn %d", i)
		assert.Equal(t, got[i].Content, loaded[i].Content, "turn %d", i)
		assert.Equal(t, got[i].IsThought, loaded[i].IsThought, "turn %d", i)
	}
	require.Len(t, loaded[1].ToolCalls, 1)
	assert.Equal(t, "list_pods", loaded[1].ToolCalls[0].Name)
}

func TestLive_AbnormalDrop(t *testing.T) {
	l := newLive(t, chattest.WithScript(func(string, protocol.UserRequest) chattest.Reply {
		return chattest.Reply{
			Events: []event.Event{event.Token{Content: "half an answ"}},
			Close:  1006,
		}
	}))
	ctx := context.Background()

	c := l.connect(t)
	require.NoError(t, c.NewConversation(ctx))
	waitFor(t, c, func(s session.State) bool { return s.Phase == session.PhaseConnected })
	require.NoError(t, c.Send(ctx, "explain"))

	waitFor(t, c, func(s session.State) bool {
		return s.Phase == session.PhaseError && len(s.Turns) == 2
	})
	assert.Equal(t, "half an answ"+session.InterruptedMarker, c.Snapshot().Turns[1].Content)
}

func TestLive_Cancel(t *testing.T) {
	l := newLive(t, chattest.WithScript(func(string, protocol.UserRequest) chattest.Reply {
		return chattest.Reply{Events: []event.Event{event.Token{Content: "thinking"}}}
	}))
	ctx := context.Background()

	c := l.connect(t)
	require.NoError(t, c.NewConversation(ctx))
	waitFor(t, c, func(s session.State) bool { return s.Phase == session.PhaseConnected })
	require.NoError(t, c.Send(ctx, "long job"))
	waitFor(t, c, func(s session.State) bool { return s.Pending == "thinking" })

	require.NoError(t, c.Cancel(ctx))
	waitFor(t, c, settled(2))

	assert.Equal(t, 1, l.server.Stops())
	assert.Equal(t, "thinking"+session.ErrorMarker(chattest.CancelledMessage),
		c.Snapshot().Turns[1].Content)
}
