package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type frame struct {
	Type           Type            `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Title          string          `json:"title,omitempty"`
	Content        *string         `json:"content,omitempty"`
	Tool           string          `json:"tool,omitempty"`
	Args           json.RawMessage `json:"args,omitempty"`
	Output         json.RawMessage `json:"output,omitempty"`
}

// Decode parses one text frame into an Event. It returns ErrMalformed for
// payloads that are not JSON objects or lack a required field, and
// ErrUnknownType for an unrecognised discriminator.
func Decode(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch f.Type {
	case TypeInit:
		if f.ConversationID == "" {
			return nil, missing(f.Type, "conversation_id")
		}
		return Init{ConversationID: f.ConversationID, Title: f.Title}, nil

	case TypeToken:
		if f.Content == nil {
			return nil, missing(f.Type, "content")
		}
		return Token{Content: *f.Content}, nil

	case TypeToolStart:
		if f.Tool == "" {
			return nil, missing(f.Type, "tool")
		}
		return ToolStart{Tool: f.Tool, Args: text(f.Args)}, nil

	case TypeToolResult:
		if len(f.Output) == 0 {
			return nil, missing(f.Type, "output")
		}
		return ToolResult{Output: text(f.Output)}, nil

	case TypeError:
		if f.Content == nil {
			return nil, missing(f.Type, "content")
		}
		return Error{Content: *f.Content}, nil

	case TypeDone:
		return Done{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
}

// Encode produces the wire form of ev.
func Encode(ev Event) ([]byte, error) {
	enc := encoder{f: frame{Type: ev.Type()}}
	ev.Accept(&enc)
	if enc.err != nil {
		return nil, enc.err
	}
	return json.Marshal(enc.f)
}

type encoder struct {
	f   frame
	err error
}

func (e *encoder) VisitInit(ev Init) {
	e.f.ConversationID = ev.ConversationID
	e.f.Title = ev.Title
}

func (e *encoder) VisitToken(ev Token) {
	e.f.Content = &ev.Content
}

func (e *encoder) VisitToolStart(ev ToolStart) {
	e.f.Tool = ev.Tool
	e.f.Args, e.err = json.Marshal(ev.Args)
}

func (e *encoder) VisitToolResult(ev ToolResult) {
	e.f.Output, e.err = json.Marshal(ev.Output)
}

func (e *encoder) VisitError(ev Error) {
	e.f.Content = &ev.Content
}

func (e *encoder) VisitDone(Done) {}

func missing(t Type, field string) error {
	return fmt.Errorf("%w: %s frame without %s", ErrMalformed, t, field)
}

// text renders a raw JSON value as display text: strings are unquoted,
// null becomes empty, and any other value is kept as compact JSON.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
