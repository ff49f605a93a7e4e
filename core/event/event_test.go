package event_test

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/streamchat/core/event"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected event.Event
	}{
		{
			name:     "init with title",
			input:    `{"type":"init","conversation_id":"c-1","title":"Pod status"}`,
			expected: event.Init{ConversationID: "c-1", Title: "Pod status"},
		},
		{
			name:     "init without title",
			input:    `{"type":"init","conversation_id":"c-1"}`,
			expected: event.Init{ConversationID: "c-1"},
		},
		{
			name:     "token",
			input:    `{"type":"token","content":"Hello "}`,
			expected: event.Token{Content: "Hello "},
		},
		{
			name:     "empty token",
			input:    `{"type":"token","content":""}`,
			expected: event.Token{Content: ""},
		},
		{
			name:     "tool start with string args",
			input:    `{"type":"tool_start","tool":"list_pods","args":"{\"namespace\": \"default\"}"}`,
			expected: event.ToolStart{Tool: "list_pods", Args: `{"namespace": "default"}`},
		},
		{
			name:     "tool start with object args",
			input:    `{"type":"tool_start","tool":"list_pods","args":{"namespace": "default"}}`,
			expected: event.ToolStart{Tool: "list_pods", Args: `{"namespace":"default"}`},
		},
		{
			name:     "tool start without args",
			input:    `{"type":"tool_start","tool":"cluster_info"}`,
			expected: event.ToolStart{Tool: "cluster_info"},
		},
		{
			name:     "tool result",
			input:    `{"type":"tool_result","output":"3 pods"}`,
			expected: event.ToolResult{Output: "3 pods"},
		},
		{
			name:     "tool result null output",
			input:    `{"type":"tool_result","output":null}`,
			expected: event.ToolResult{Output: ""},
		},
		{
			name:     "error",
			input:    `{"type":"error","content":"[Task Cancelled by User]"}`,
			expected: event.Error{Content: "[Task Cancelled by User]"},
		},
		{
			name:     "done",
			input:    `{"type":"done"}`,
			expected: event.Done{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := event.Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if ev != tt.expected {
				t.Errorf("got %#v, want %#v", ev, tt.expected)
			}
			if ev.Type() != tt.expected.Type() {
				t.Errorf("got type %q, want %q", ev.Type(), tt.expected.Type())
			}
		})
	}
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not json", `not-json`, event.ErrMalformed},
		{"json array", `[1,2]`, event.ErrMalformed},
		{"missing type", `{"content":"x"}`, event.ErrMalformed},
		{"unknown type", `{"type":"heartbeat"}`, event.ErrUnknownType},
		{"init without id", `{"type":"init"}`, event.ErrMalformed},
		{"token without content", `{"type":"token"}`, event.ErrMalformed},
		{"tool start without tool", `{"type":"tool_start","args":"{}"}`, event.ErrMalformed},
		{"tool result without output", `{"type":"tool_result"}`, event.ErrMalformed},
		{"error without content", `{"type":"error"}`, event.ErrMalformed},
		{"wrong field type", `{"type":"token","content":42}`, event.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := event.Decode([]byte(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("got error %v, want %v", err, tt.want)
			}
			if ev != nil {
				t.Errorf("got event %#v, want nil", ev)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	events := []event.Event{
		event.Init{ConversationID: "c-9", Title: "New Conversation"},
		event.Token{Content: "partial "},
		event.ToolStart{Tool: "get_logs", Args: `{"pod":"api-0"}`},
		event.ToolResult{Output: "no errors"},
		event.Error{Content: "rate limited"},
		event.Done{},
	}

	for _, ev := range events {
		t.Run(string(ev.Type()), func(t *testing.T) {
			data, err := event.Encode(ev)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := event.Decode(data)
			if err != nil {
				t.Fatalf("Decode(%s) failed: %v", data, err)
			}
			if decoded != ev {
				t.Errorf("got %#v, want %#v", decoded, ev)
			}
		})
	}
}

type countingVisitor struct {
	counts map[event.Type]int
}

func (v *countingVisitor) VisitInit(event.Init)             { v.counts[event.TypeInit]++ }
func (v *countingVisitor) VisitToken(event.Token)           { v.counts[event.TypeToken]++ }
func (v *countingVisitor) VisitToolStart(event.ToolStart)   { v.counts[event.TypeToolStart]++ }
func (v *countingVisitor) VisitToolResult(event.ToolResult) { v.counts[event.TypeToolResult]++ }
func (v *countingVisitor) VisitError(event.Error)           { v.counts[event.TypeError]++ }
func (v *countingVisitor) VisitDone(event.Done)             { v.counts[event.TypeDone]++ }

func TestAccept_DispatchesByKind(t *testing.T) {
	v := &countingVisitor{counts: make(map[event.Type]int)}

	events := []event.Event{
		event.Init{ConversationID: "c"},
		event.Token{}, event.Token{},
		event.ToolStart{Tool: "t"},
		event.ToolResult{},
		event.Error{},
		event.Done{},
	}
	for _, ev := range events {
		ev.Accept(v)
	}

	expected := map[event.Type]int{
		event.TypeInit:       1,
		event.TypeToken:      2,
		event.TypeToolStart:  1,
		event.TypeToolResult: 1,
		event.TypeError:      1,
		event.TypeDone:       1,
	}
	for typ, want := range expected {
		if got := v.counts[typ]; got != want {
			t.Errorf("%s: got %d visits, want %d", typ, got, want)
		}
	}
}
