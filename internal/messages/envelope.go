package messages

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Envelope is the wire container for a single message. Exactly one of Command
// and Event is set.
type Envelope struct {
	Command json.RawMessage `json:"command,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
}

// Decoded is an envelope whose payload has been resolved against the schema.
type Decoded struct {
	Kind        Kind
	MessageType string
	WireName    string
	Payload     json.RawMessage
}

// Decode unmarshals the payload into v.
func (d *Decoded) Decode(v any) error {
	return json.Unmarshal(d.Payload, v)
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Wrap stamps the wire name of messageType into payload, validates the result
// against the message's definition and returns the encoded envelope. An empty
// payload is treated as {}.
func (r *Registry) Wrap(messageType string, payload []byte) ([]byte, error) {
	const op = "Wrap"
	wire, err := r.MessageTypeToWireName(messageType)
	if err != nil {
		return nil, err
	}
	kind, _ := ClassifyName(messageType)

	if !present(payload) {
		payload = []byte("{}")
	}
	fields, err := objectFields(payload)
	if err != nil {
		return nil, invalid(op, messageType, err.Error())
	}
	if raw, ok := fields[kind.NameProperty()]; ok {
		var declared string
		if err := json.Unmarshal(raw, &declared); err != nil || declared != wire {
			return nil, invalid(op, messageType, fmt.Sprintf("payload %s %s does not match %q", kind.NameProperty(), raw, wire))
		}
	}

	stamp, err := json.Marshal(map[string]string{kind.NameProperty(): wire})
	if err != nil {
		return nil, fmt.Errorf("marshal discriminator: %w", err)
	}
	merged, err := jsonpatch.MergePatch(payload, stamp)
	if err != nil {
		return nil, invalid(op, messageType, "merge discriminator: "+err.Error())
	}
	if err := r.validatePayload(messageType, merged); err != nil {
		return nil, err
	}

	var env Envelope
	if kind == KindCommand {
		env.Command = merged
	} else {
		env.Event = merged
	}
	return json.Marshal(env)
}

// Unwrap parses an envelope, resolves its discriminator to a message type and
// validates the payload.
func (r *Registry) Unwrap(data []byte) (*Decoded, error) {
	const op = "Unwrap"
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, invalid(op, "", "envelope is not a JSON object: "+err.Error())
	}

	hasCommand, hasEvent := present(env.Command), present(env.Event)
	var (
		kind    Kind
		payload json.RawMessage
	)
	switch {
	case hasCommand && hasEvent:
		return nil, invalid(op, "", "envelope sets both command and event")
	case hasCommand:
		kind, payload = KindCommand, env.Command
	case hasEvent:
		kind, payload = KindEvent, env.Event
	default:
		return nil, invalid(op, "", "envelope sets neither command nor event")
	}

	fields, err := objectFields(payload)
	if err != nil {
		return nil, invalid(op, "", kind.String()+" "+err.Error())
	}
	raw, ok := fields[kind.NameProperty()]
	if !ok {
		return nil, invalid(op, "", kind.String()+" has no "+kind.NameProperty())
	}
	var wire string
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, invalid(op, string(raw), kind.NameProperty()+" must be a string")
	}
	name, err := r.LookupWireName(kind, wire)
	if err != nil {
		return nil, err
	}
	if err := r.validatePayload(name, payload); err != nil {
		return nil, err
	}
	return &Decoded{Kind: kind, MessageType: name, WireName: wire, Payload: payload}, nil
}

func (r *Registry) validatePayload(messageType string, payload []byte) error {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return invalid("Validate", messageType, "payload is not valid JSON: "+err.Error())
	}
	return r.doc.Validate(messageType, v)
}

func objectFields(payload []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return fields, nil
}
