// Package chattest runs an in-process fake agent for integration tests: the
// WebSocket chat endpoint and the conversation REST endpoints, backed by an
// in-memory conversation store and a scripted reply function.
package chattest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tailored-agentic-units/streamchat/core/event"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

// CancelledMessage is the error content sent in answer to a stop frame.
const CancelledMessage = "[Task Cancelled by User]"

// Reply is what the fake agent sends back for one user request. When Close
// is non-zero the connection is closed with that code after the events;
// 1006 drops the socket without a close frame.
type Reply struct {
	Events []event.Event
	Close  int
}

// Script computes the Reply to a user request.
type Script func(conversationID string, req protocol.UserRequest) Reply

// Echo answers with "echo: " and the last message's content.
func Echo(_ string, req protocol.UserRequest) Reply {
	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	return Reply{Events: []event.Event{
		event.Token{Content: "echo: "},
		event.Token{Content: last},
		event.Done{},
	}}
}

// Message is a persisted turn as served by the REST endpoint.
type Message struct {
	Role      string  `json:"role"`
	Content   *string `json:"content"`
	CreatedAt string  `json:"created_at"`
}

// Text returns a Message with content.
func Text(role protocol.Role, content string) Message {
	return Message{Role: string(role), Content: &content, CreatedAt: now()}
}

type conversation struct {
	id       string
	title    string
	created  string
	messages []Message
}

// Option configures a Server.
type Option func(*Server)

// WithScript sets the reply function. The default is Echo.
func WithScript(s Script) Option {
	return func(srv *Server) { srv.script = s }
}

// Server is a running fake agent.
type Server struct {
	http     *httptest.Server
	upgrader websocket.Upgrader
	script   Script

	mu            sync.Mutex
	conversations []*conversation
	requests      []protocol.UserRequest
	dials         []string
	stops         int
	conns         map[*websocket.Conn]struct{}
	handlers      sync.WaitGroup
}

// New starts a Server on a loopback port.
func New(opts ...Option) *Server {
	s := &Server{
		script: Echo,
		conns:  make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	s.routes(e)

	s.http = httptest.NewServer(e)
	return s
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/api/chat/ws", s.handleChat)
	e.GET("/api/conversations", s.handleList)
	e.GET("/api/conversations/:id/messages", s.handleMessages)
	e.DELETE("/api/conversations/:id", s.handleDelete)
}

// URL is the base URL of the REST endpoints.
func (s *Server) URL() string {
	return s.http.URL
}

// WebSocketURL is the chat endpoint without a conversation id.
func (s *Server) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + "/api/chat/ws"
}

// Close drops every open chat connection and stops the server.
func (s *Server) Close() {
	s.Drop(websocket.CloseGoingAway)
	s.handlers.Wait()
	s.http.Close()
}

// AddConversation seeds a persisted conversation. Later additions list
// first.
func (s *Server) AddConversation(id, title string, msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append(s.conversations, &conversation{
		id:       id,
		title:    title,
		created:  now(),
		messages: msgs,
	})
}

// Messages returns the persisted turns of conversation id.
func (s *Server) Messages(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.find(id); c != nil {
		return append([]Message(nil), c.messages...)
	}
	return nil
}

// Requests returns every user request received, in order.
func (s *Server) Requests() []protocol.UserRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.UserRequest(nil), s.requests...)
}

// Dials returns the conversation_id query of every chat connection accepted.
func (s *Server) Dials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dials...)
}

// Stops returns how many stop frames were received.
func (s *Server) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Drop closes every open chat connection with code; 1006 drops the socket
// without a close frame.
func (s *Server) Drop(code int) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		closeConn(c, code)
	}
}

func closeConn(ws *websocket.Conn, code int) {
	if code != websocket.CloseAbnormalClosure {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
	}
	ws.Close()
}

func (s *Server) handleChat(c echo.Context) error {
	requested := c.QueryParam("conversation_id")

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	s.dials = append(s.dials, requested)
	s.conns[ws] = struct{}{}
	s.handlers.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, ws)
		s.mu.Unlock()
		ws.Close()
		s.handlers.Done()
	}()

	s.session(ws, requested)
	return nil
}

type inbound struct {
	Type     string          `json:"type"`
	Messages []protocol.Turn `json:"messages"`
	Model    string          `json:"model"`
}

// session mirrors the agent's per-connection loop: resume or lazily create
// the conversation, then answer each request in turn.
func (s *Server) session(ws *websocket.Conn, requested string) {
	id := ""
	if requested != "" {
		var created bool
		id, created = s.ensure(requested)
		if created {
			s.write(ws, event.Init{ConversationID: id, Title: "New Conversation"})
		}
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.write(ws, event.Error{Content: "Invalid JSON format"})
			continue
		}

		if in.Type == protocol.ControlStop {
			s.mu.Lock()
			s.stops++
			s.mu.Unlock()
			s.write(ws, event.Error{Content: CancelledMessage})
			s.write(ws, event.Done{})
			continue
		}
		if len(in.Messages) == 0 {
			continue
		}

		last := in.Messages[len(in.Messages)-1]
		if id == "" {
			title := titleFrom(last.Content)
			id = s.create(uuid.NewString(), title)
			s.write(ws, event.Init{ConversationID: id, Title: title})
		}

		req := protocol.UserRequest{Messages: in.Messages, Model: in.Model}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()
		if last.Role == protocol.RoleUser {
			s.persist(id, Text(protocol.RoleUser, last.Content))
		}

		// Persisted before sending so history is complete once Done arrives.
		reply := s.script(id, req)
		s.persist(id, transcribe(reply.Events)...)
		for _, ev := range reply.Events {
			if !s.write(ws, ev) {
				return
			}
		}

		if reply.Close != 0 {
			closeConn(ws, reply.Close)
			return
		}
	}
}

func (s *Server) write(ws *websocket.Conn, ev event.Event) bool {
	data, err := event.Encode(ev)
	if err != nil {
		return false
	}
	return ws.WriteMessage(websocket.TextMessage, data) == nil
}

func (s *Server) handleList(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]string, 0, len(s.conversations))
	for i := len(s.conversations) - 1; i >= 0; i-- {
		conv := s.conversations[i]
		out = append(out, map[string]string{
			"id":         conv.id,
			"title":      conv.title,
			"created_at": conv.created,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleMessages(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(c.Param("id"))
	if conv == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Conversation not found"})
	}
	msgs := conv.messages
	if msgs == nil {
		msgs = []Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, conv := range s.conversations {
		if conv.id == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "id": id})
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"detail": "Conversation not found"})
}

// ensure returns the id of the requested conversation, creating a fresh one
// when it does not exist. created reports whether a new id was issued.
func (s *Server) ensure(requested string) (id string, created bool) {
	s.mu.Lock()
	found := s.find(requested) != nil
	s.mu.Unlock()
	if found {
		return requested, false
	}
	return s.create(uuid.NewString(), "New Conversation"), true
}

func (s *Server) create(id, title string) string {
	s.AddConversation(id, title)
	return id
}

func (s *Server) persist(id string, msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.find(id); c != nil {
		c.messages = append(c.messages, msgs...)
	}
}

func (s *Server) find(id string) *conversation {
	for _, c := range s.conversations {
		if c.id == id {
			return c
		}
	}
	return nil
}

func titleFrom(content string) string {
	runes := []rune(content)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return content
}

func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000")
}

// Wait blocks until n user requests have been received or ctx ends.
func (s *Server) Wait(ctx context.Context, n int) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if len(s.Requests()) >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
