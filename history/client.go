// Package history reads and deletes persisted conversations through the
// agent's REST endpoints.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
	"github.com/tailored-agentic-units/streamchat/observability"
)

// Conversation is one entry of the conversation list, newest first.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type message struct {
	Role      string  `json:"role"`
	Content   *string `json:"content"`
	CreatedAt string  `json:"created_at"`
}

// Option configures a Client.
type Option func(*Client)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// Client talks to the conversation store.
type Client struct {
	base     string
	http     *http.Client
	observer observability.Observer
}

// New creates a Client. Zero fields of cfg take their defaults.
func New(cfg Config, opts ...Option) *Client {
	merged := DefaultConfig()
	merged.Merge(&cfg)

	c := &Client{
		base:     strings.TrimRight(merged.BaseURL, "/"),
		http:     &http.Client{Timeout: merged.Timeout},
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the most recent conversations.
func (c *Client) List(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations", &convs); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Fetch returns the persisted turns of conversation id in order, without
// thought labels. Null content reads as empty text and any tool-call tail on
// assistant content is moved into ToolCalls.
func (c *Client) Fetch(ctx context.Context, id string) ([]protocol.Turn, error) {
	var msgs []message
	path := "/api/conversations/" + url.PathEscape(id) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, &msgs); err != nil {
		return nil, fmt.Errorf("fetch conversation %s: %w", id, err)
	}

	turns := make([]protocol.Turn, 0, len(msgs))
	for i, m := range msgs {
		role := protocol.Role(m.Role)
		if !role.Valid() {
			c.emit(ctx, EventBadRole, observability.LevelWarning, map[string]any{
				"conversation_id": id,
				"index":           i,
				"role":            m.Role,
			})
			continue
		}

		var content string
		if m.Content != nil {
			content = *m.Content
		}
		turn := protocol.NewTurn(role, content)

		if role == protocol.RoleAssistant {
			visible, calls, err := SplitContent(content)
			if err != nil {
				c.emit(ctx, EventBadToolCalls, observability.LevelWarning, map[string]any{
					"conversation_id": id,
					"index":           i,
					"error":           err.Error(),
				})
			}
			turn.Content = visible
			turn.ToolCalls = calls
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Delete removes conversation id from the store.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := "/api/conversations/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.emit(ctx, EventRequest, observability.LevelVerbose, map[string]any{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(body)))
	case out == nil:
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "history.Client",
		Data:      data,
	})
}
