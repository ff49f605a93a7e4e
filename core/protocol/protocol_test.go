package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		name     string
		role     protocol.Role
		expected bool
	}{
		{"system", protocol.RoleSystem, true},
		{"user", protocol.RoleUser, true},
		{"assistant", protocol.RoleAssistant, true},
		{"tool", protocol.RoleTool, true},
		{"empty", "", false},
		{"uppercase", "USER", false},
		{"unknown", "function", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Valid(); got != tt.expected {
				t.Errorf("Valid(%q) = %v, want %v", tt.role, got, tt.expected)
			}
		})
	}
}

func TestNewTurn(t *testing.T) {
	turn := protocol.NewTurn(protocol.RoleUser, "Hello, world!")

	if turn.Role != protocol.RoleUser {
		t.Errorf("got role %q, want %q", turn.Role, protocol.RoleUser)
	}
	if turn.Content != "Hello, world!" {
		t.Errorf("got content %q, want %q", turn.Content, "Hello, world!")
	}
	if turn.IsThought {
		t.Error("new turn should not be a thought")
	}
}

func TestNewThought(t *testing.T) {
	turn := protocol.NewThought("checking pods")

	if turn.Role != protocol.RoleAssistant {
		t.Errorf("got role %q, want %q", turn.Role, protocol.RoleAssistant)
	}
	if !turn.IsThought {
		t.Error("NewThought should set IsThought")
	}
}

func TestTurn_JSON(t *testing.T) {
	data, err := json.Marshal(protocol.NewThought("hmm"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"role":"assistant","content":"hmm","isThought":true}`
	if string(data) != expected {
		t.Errorf("got %s, want %s", data, expected)
	}

	data, err = json.Marshal(protocol.NewTurn(protocol.RoleUser, "hi"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected = `{"role":"user","content":"hi"}`
	if string(data) != expected {
		t.Errorf("got %s, want %s", data, expected)
	}
}

func TestCloneTurns_DefensiveCopy(t *testing.T) {
	original := []protocol.Turn{
		{
			Role:      protocol.RoleAssistant,
			Content:   "calling",
			ToolCalls: []protocol.ToolCall{protocol.NewToolCall("call_1", "list_pods", "{}")},
		},
	}

	copied := protocol.CloneTurns(original)
	copied[0].Content = "tampered"
	copied[0].ToolCalls[0].Name = "tampered"

	if original[0].Content != "calling" {
		t.Errorf("content was mutated: got %q", original[0].Content)
	}
	if original[0].ToolCalls[0].Name != "list_pods" {
		t.Errorf("tool call was mutated: got %q", original[0].ToolCalls[0].Name)
	}
}

func TestCloneTurns_Nil(t *testing.T) {
	if got := protocol.CloneTurns(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestToolCall_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected protocol.ToolCall
	}{
		{
			name:     "nested function format",
			input:    `{"id":"call_1","type":"function","function":{"name":"get_logs","arguments":"{\"pod\":\"api\"}"}}`,
			expected: protocol.NewToolCall("call_1", "get_logs", `{"pod":"api"}`),
		},
		{
			name:     "flat format",
			input:    `{"id":"call_2","name":"get_logs","arguments":"{}"}`,
			expected: protocol.NewToolCall("call_2", "get_logs", "{}"),
		},
		{
			name:     "object args format",
			input:    `{"name":"list_pods","args":{"namespace":"default"},"id":"call_3","type":"tool_call"}`,
			expected: protocol.NewToolCall("call_3", "list_pods", `{"namespace":"default"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tc protocol.ToolCall
			if err := json.Unmarshal([]byte(tt.input), &tc); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if tc != tt.expected {
				t.Errorf("got %+v, want %+v", tc, tt.expected)
			}
		})
	}
}

func TestToolActivity_Clone(t *testing.T) {
	out := "3 pods"
	a := protocol.NewToolActivity("list_pods", "{}")
	a.Output = &out
	a.Phase = protocol.ToolCompleted

	c := a.Clone()
	*c.Output = "tampered"
	c.Phase = protocol.ToolError

	if *a.Output != "3 pods" {
		t.Errorf("output was mutated: got %q", *a.Output)
	}
	if a.Phase != protocol.ToolCompleted {
		t.Errorf("phase was mutated: got %q", a.Phase)
	}

	var nilActivity *protocol.ToolActivity
	if nilActivity.Clone() != nil {
		t.Error("Clone of nil activity should be nil")
	}
}

func TestUserRequest_JSON(t *testing.T) {
	req := protocol.UserRequest{
		Messages: []protocol.Turn{protocol.NewTurn(protocol.RoleUser, "hi")},
		Model:    protocol.DefaultModel,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"messages":[{"role":"user","content":"hi"}],"model":"qwen3-coder-plus"}`
	if string(data) != expected {
		t.Errorf("got %s, want %s", data, expected)
	}
}

func TestNewStopFrame(t *testing.T) {
	data, err := json.Marshal(protocol.NewStopFrame())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"type":"stop"}` {
		t.Errorf("got %s, want %s", data, `{"type":"stop"}`)
	}
}
