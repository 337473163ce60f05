package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventPayload is the closed sum type of event payload variants. It is
// implemented as a sealed interface (a private marker method) rather than a
// discriminated struct, mirroring how the example pack models closed
// variant sets (e.g. a sealed ModelEvent interface with an unexported
// marker method) while still matching the wire shape of the original
// internally-tagged Rust enum: {"type": "...", ...fields}.
type EventPayload interface {
	isEventPayload()
	payloadType() string
}

// TextPayload carries plain text (user/assistant messages).
type TextPayload struct {
	Text string `json:"text"`
}

func (TextPayload) isEventPayload()      {}
func (TextPayload) payloadType() string  { return "text" }

// ToolCallPayload carries a tool invocation.
type ToolCallPayload struct {
	ToolName string          `json:"tool_name"`
	Input    json.RawMessage `json:"input"`
}

func (ToolCallPayload) isEventPayload()     {}
func (ToolCallPayload) payloadType() string { return "tool_call" }

// ToolResultPayload carries a tool's outcome.
type ToolResultPayload struct {
	CallID     string  `json:"call_id"`
	OK         bool    `json:"ok"`
	OutputText *string `json:"output_text,omitempty"`
	ErrorText  *string `json:"error_text,omitempty"`
}

func (ToolResultPayload) isEventPayload()     {}
func (ToolResultPayload) payloadType() string { return "tool_result" }

// JSONPayload carries an arbitrary JSON value, used for system/progress
// events that don't fit the other arms.
type JSONPayload struct {
	Value json.RawMessage `json:"value"`
}

func (JSONPayload) isEventPayload()     {}
func (JSONPayload) payloadType() string { return "json" }

// NewTextPayload is a convenience constructor.
func NewTextPayload(text string) EventPayload { return TextPayload{Text: text} }

// NewToolCallPayload is a convenience constructor.
func NewToolCallPayload(toolName string, input json.RawMessage) EventPayload {
	return ToolCallPayload{ToolName: toolName, Input: input}
}

// NewJSONPayload marshals v and wraps it as a JSONPayload.
func NewJSONPayload(v any) (EventPayload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSONPayload{Value: raw}, nil
}

// MarshalJSON implements the internally-tagged wire format:
// {"type": "<variant>", ...fields}.
func (e *Event) MarshalJSON() ([]byte, error) {
	type alias Event // avoid recursion
	payloadJSON, err := marshalPayload(e.Payload)
	if err != nil {
		return nil, err
	}
	// Marshal everything else via the alias, then splice in "payload".
	tmp := struct {
		alias
		Payload json.RawMessage `json:"payload"`
	}{alias: alias(*e), Payload: payloadJSON}
	return json.Marshal(tmp)
}

// UnmarshalJSON reconstructs the tagged EventPayload union from the wire
// form produced by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	tmp := struct {
		alias
		Payload json.RawMessage `json:"payload"`
	}{}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*e = Event(tmp.alias)
	payload, err := unmarshalPayload(tmp.Payload)
	if err != nil {
		return err
	}
	e.Payload = payload
	return nil
}

func marshalPayload(p EventPayload) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("null"), nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	typeField, err := json.Marshal(p.payloadType())
	if err != nil {
		return nil, err
	}
	// Splice {"type": "<variant>"} into the marshaled object.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	obj["type"] = typeField
	return json.Marshal(obj)
}

func unmarshalPayload(data []byte) (EventPayload, error) {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &disc); err != nil {
		return nil, err
	}
	switch disc.Type {
	case "text":
		var v TextPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "tool_call":
		var v ToolCallPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "tool_result":
		var v ToolResultPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "json":
		var v JSONPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("model: unknown event payload type %q", disc.Type)
	}
}
