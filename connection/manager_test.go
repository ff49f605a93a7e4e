package connection_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/tailored-agentic-units/streamchat/connection"
	"github.com/tailored-agentic-units/streamchat/observability"
	"github.com/tailored-agentic-units/streamchat/transport/mock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const endpoint = "ws://agent.test/api/chat/ws"

func newManager(t *testing.T, opts ...connection.Option) (*connection.Manager, *mock.Dialer) {
	t.Helper()
	d := mock.NewDialer()
	m := connection.New(context.Background(), d, connection.Config{Endpoint: endpoint}, opts...)
	t.Cleanup(m.Shutdown)
	return m, d
}

func next(t *testing.T, m *connection.Manager) connection.Signal {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := m.Next(ctx)
	if err != nil {
		t.Fatalf("waiting for signal: %v", err)
	}
	return s
}

func expect(t *testing.T, s connection.Signal, epoch uint64, kind connection.SignalKind) {
	t.Helper()
	if s.Epoch != epoch || s.Kind != kind {
		t.Fatalf("got signal %s@%d, want %s@%d", s.Kind, s.Epoch, kind, epoch)
	}
}

// waitState polls until the manager reaches want. State changes after the
// epoch's signals are queued.
func waitState(t *testing.T, m *connection.Manager, want connection.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("got state %q, want %q", m.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func dialed(t *testing.T, d *mock.Dialer) *mock.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := d.Next(ctx)
	if err != nil {
		t.Fatalf("waiting for dial: %v", err)
	}
	return c
}

func TestConfig_Merge(t *testing.T) {
	cfg := connection.DefaultConfig()
	cfg.Merge(&connection.Config{Endpoint: "wss://prod/api/chat/ws"})

	if cfg.Endpoint != "wss://prod/api/chat/ws" {
		t.Errorf("got endpoint %q", cfg.Endpoint)
	}
	if cfg.SignalBuffer != connection.DefaultConfig().SignalBuffer {
		t.Errorf("got signal buffer %d, want default kept", cfg.SignalBuffer)
	}
}

func TestConnect_Open(t *testing.T) {
	m, d := newManager(t)

	epoch := m.Connect("")
	if epoch != 1 {
		t.Errorf("got epoch %d, want 1", epoch)
	}

	expect(t, next(t, m), 1, connection.SignalOpen)

	if !m.IsOpen() || m.State() != connection.StateOpen {
		t.Errorf("got state %q, want open", m.State())
	}
	if got := d.URLs()[0]; got != endpoint {
		t.Errorf("got url %q, want %q", got, endpoint)
	}
}

func TestConnect_TargetInQuery(t *testing.T) {
	m, d := newManager(t)

	m.Connect("conv 42")
	next(t, m)

	if got := d.URLs()[0]; got != endpoint+"?conversation_id=conv+42" {
		t.Errorf("got url %q", got)
	}
	if m.Target() != "conv 42" {
		t.Errorf("got target %q", m.Target())
	}
}

func TestFramesThenAbnormalClose(t *testing.T) {
	m, d := newManager(t)
	m.Connect("")
	conn := dialed(t, d)
	next(t, m)

	conn.PushString(`{"type":"token","content":"a"}`)
	conn.PushString(`{"type":"token","content":"b"}`)
	conn.Drop(1006, "")

	for _, want := range []string{"a", "b"} {
		s := next(t, m)
		expect(t, s, 1, connection.SignalFrame)
		if !strings.Contains(string(s.Data), `"`+want+`"`) {
			t.Errorf("got frame %s, want content %q", s.Data, want)
		}
	}

	s := next(t, m)
	expect(t, s, 1, connection.SignalClose)
	if s.Code != 1006 || s.Normal {
		t.Errorf("got close %d normal=%v, want 1006 abnormal", s.Code, s.Normal)
	}
	waitState(t, m, connection.StateDisconnected)
}

func TestPeerNormalClose(t *testing.T) {
	for _, code := range []int{1000, 1005} {
		m, d := newManager(t)
		m.Connect("")
		conn := dialed(t, d)
		next(t, m)

		conn.Drop(code, "")

		s := next(t, m)
		expect(t, s, 1, connection.SignalClose)
		if !s.Normal {
			t.Errorf("code %d: got abnormal, want normal", code)
		}
	}
}

func TestNetworkFailure(t *testing.T) {
	m, d := newManager(t)
	m.Connect("")
	conn := dialed(t, d)
	next(t, m)

	conn.Fail(errors.New("connection reset by peer"))

	expect(t, next(t, m), 1, connection.SignalError)
	s := next(t, m)
	expect(t, s, 1, connection.SignalClose)
	if s.Code != 1006 || s.Normal {
		t.Errorf("got close %d normal=%v, want 1006 abnormal", s.Code, s.Normal)
	}
}

func TestClose_Graceful(t *testing.T) {
	m, d := newManager(t)
	m.Connect("")
	conn := dialed(t, d)
	next(t, m)

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s := next(t, m)
	expect(t, s, 1, connection.SignalClose)
	if s.Code != 1000 || !s.Normal {
		t.Errorf("got close %d normal=%v, want 1000 normal", s.Code, s.Normal)
	}
	if code, ok := conn.Closed(); !ok || code != 1000 {
		t.Errorf("got conn closed (%d, %v), want (1000, true)", code, ok)
	}
	waitState(t, m, connection.StateDisconnected)
}

func TestClose_WhenDisconnected(t *testing.T) {
	m, _ := newManager(t)
	if err := m.Close(); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestConnect_SupersedesEpoch(t *testing.T) {
	m, d := newManager(t)

	m.Connect("a")
	first := dialed(t, d)
	expect(t, next(t, m), 1, connection.SignalOpen)

	epoch := m.Connect("b")
	if epoch != 2 {
		t.Fatalf("got epoch %d, want 2", epoch)
	}
	if _, ok := first.Closed(); !ok {
		t.Error("superseded connection was not closed")
	}
	if m.IsCurrent(1) || !m.IsCurrent(2) {
		t.Error("epoch 2 should be the only current epoch")
	}

	// The old reader reports its closure under epoch 1 before the new
	// connection opens under epoch 2.
	expect(t, next(t, m), 1, connection.SignalClose)
	expect(t, next(t, m), 2, connection.SignalOpen)
}

func TestDialFailure(t *testing.T) {
	m, d := newManager(t)
	d.Fail(errors.New("connection refused"))

	m.Connect("")

	s := next(t, m)
	expect(t, s, 1, connection.SignalError)
	if s.Err == nil {
		t.Error("expected dial error on signal")
	}
	s = next(t, m)
	expect(t, s, 1, connection.SignalClose)
	if s.Normal || s.Code != 1006 {
		t.Errorf("got close %d normal=%v, want 1006 abnormal", s.Code, s.Normal)
	}
	waitState(t, m, connection.StateDisconnected)
}

func TestReconnect_AfterDropQueuesClosureFirst(t *testing.T) {
	for range 20 {
		m, d := newManager(t)
		m.Connect("")
		conn := dialed(t, d)
		expect(t, next(t, m), 1, connection.SignalOpen)

		conn.Drop(1006, "")
		waitState(t, m, connection.StateDisconnected)
		m.Reconnect()
		dialed(t, d)

		expect(t, next(t, m), 1, connection.SignalClose)
		expect(t, next(t, m), 2, connection.SignalOpen)
		m.Shutdown()
	}
}

func TestReconnect_UsesRetarget(t *testing.T) {
	m, d := newManager(t)
	m.Connect("")
	conn := dialed(t, d)
	next(t, m)

	m.Retarget("c-9")
	conn.Drop(1000, "")
	next(t, m)

	if epoch := m.Reconnect(); epoch != 2 {
		t.Errorf("got epoch %d, want 2", epoch)
	}
	expect(t, next(t, m), 2, connection.SignalOpen)

	urls := d.URLs()
	if len(urls) != 2 || urls[1] != endpoint+"?conversation_id=c-9" {
		t.Errorf("got urls %v", urls)
	}
}

func TestSend(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()

	if err := m.Send(ctx, []byte("x")); !errors.Is(err, connection.ErrNotOpen) {
		t.Errorf("got %v, want ErrNotOpen", err)
	}

	m.Connect("")
	conn := dialed(t, d)
	next(t, m)

	if err := m.Send(ctx, []byte(`{"type":"stop"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	sent := conn.Sent()
	if len(sent) != 1 || string(sent[0]) != `{"type":"stop"}` {
		t.Errorf("got sent %q", sent)
	}
}

func TestShutdown(t *testing.T) {
	d := mock.NewDialer()
	m := connection.New(context.Background(), d, connection.Config{Endpoint: endpoint})
	m.Connect("")
	next(t, m)

	m.Shutdown()
	m.Shutdown()

	if epoch := m.Connect(""); epoch != 0 {
		t.Errorf("got epoch %d after shutdown, want 0", epoch)
	}
	if err := m.Send(context.Background(), nil); !errors.Is(err, connection.ErrShutdown) {
		t.Errorf("got %v, want ErrShutdown", err)
	}
	for range m.Signals() {
	}
}

func TestObserverEvents(t *testing.T) {
	rec := observability.NewRecorder()
	m, d := newManager(t, connection.WithObserver(rec))
	m.Connect("")
	conn := dialed(t, d)
	next(t, m)
	conn.Drop(1006, "")
	next(t, m)

	for _, typ := range []observability.EventType{
		connection.EventConnect, connection.EventOpen, connection.EventClose,
	} {
		if rec.Count(typ) != 1 {
			t.Errorf("got %d %s events, want 1", rec.Count(typ), typ)
		}
	}
}
