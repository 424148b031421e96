// Package messages is the single source of truth for message naming.
//
// Message types are not declared in Go. They come from a JSON Schema document
// whose definitions map holds one entry per message. A definition whose name
// ends in Command or Event is a message; its command_name or event_name
// property carries a pattern whose literal text is the message's wire name:
//
//	"TogglePlayCommand": {
//	    "properties": {
//	        "command_name": {"pattern": "TOGGLE_PLAY", "type": "string"}
//	    }
//	}
//
// The pattern is treated as an opaque token, never as a regular expression.
//
// # Registry
//
// A Registry is built from a loaded Document and answers:
//
//   - AllMessageNames, AllCommandNames, AllEventNames
//   - MessageTypeToWireName ("TogglePlayCommand" → "TOGGLE_PLAY")
//   - WireNameToMessageType ("TOGGLE_PLAY" → "TogglePlayCommand")
//   - LookupWireName, for wire names shared by a command and an event
//
// Derived tables are computed once on first use. Default returns a
// process-wide registry for DefaultSchemaPath; tests and tools build their own
// with LoadSchema and NewRegistry.
//
// # Envelopes
//
// On the wire a message travels as {"command": {...}} or {"event": {...}}.
// Wrap stamps the discriminator and validates the payload, Unwrap does the
// reverse, and Router dispatches decoded messages to handlers:
//
//	reg, err := messages.Default()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, _ := reg.Wrap("TogglePlayCommand", []byte(`{"play_state": true}`))
//
//	rt := messages.NewRouter(reg)
//	_ = rt.Handle("TogglePlayCommand", func(ctx context.Context, m *messages.Decoded) error {
//	    return nil
//	})
//	_ = rt.Dispatch(ctx, data)
//
// # Subjects
//
// Publisher sends envelopes to JetStream on command.<WIRE_NAME> and
// event.<WIRE_NAME>.
//
// # Errors
//
// Loading failures are *SchemaLoadError; bad or unknown input to any lookup is
// a *ValidationError, including the empty string. Use errors.Is with
// ErrSchemaLoad and ErrValidation.
package messages
