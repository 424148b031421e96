package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// =============================================================================
// SUBJECTS
// =============================================================================

const (
	CommandStream   = "COMMAND"
	EventStream     = "EVENT"
	CommandSubjects = "command.>"
	EventSubjects   = "event.>"
)

// Subject returns the NATS subject a message of the given kind and wire name
// travels on, e.g. command.TOGGLE_PLAY.
func Subject(kind Kind, wireName string) string {
	return fmt.Sprintf("%s.%s", kind, wireName)
}

// ParseSubject splits a subject produced by Subject.
func ParseSubject(subject string) (Kind, string, error) {
	prefix, wire, ok := strings.Cut(subject, ".")
	if !ok || wire == "" || strings.Contains(wire, ".") {
		return KindUnknown, "", invalid("ParseSubject", subject, "subject must be <kind>.<WIRE_NAME>")
	}
	kind, err := ParseKind(prefix)
	if err != nil {
		return KindUnknown, "", invalid("ParseSubject", subject, err.Error())
	}
	return kind, wire, nil
}

// SubjectFor resolves the subject of a message type.
func (r *Registry) SubjectFor(messageType string) (string, error) {
	wire, err := r.MessageTypeToWireName(messageType)
	if err != nil {
		return "", err
	}
	kind, _ := ClassifyName(messageType)
	return Subject(kind, wire), nil
}

// =============================================================================
// PUBLISHER
// =============================================================================

// Publisher wraps payloads into envelopes and publishes them to JetStream.
type Publisher struct {
	js  jetstream.JetStream
	reg *Registry
}

// NewPublisher creates a publisher that resolves names through reg.
func NewPublisher(js jetstream.JetStream, reg *Registry) *Publisher {
	return &Publisher{js: js, reg: reg}
}

// Publish wraps payload as messageType and publishes it, returning the subject.
func (p *Publisher) Publish(ctx context.Context, messageType string, payload []byte) (string, error) {
	data, err := p.reg.Wrap(messageType, payload)
	if err != nil {
		return "", err
	}
	subject, err := p.reg.SubjectFor(messageType)
	if err != nil {
		return "", err
	}

	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(uuid.NewString())); err != nil {
		return "", fmt.Errorf("publish %s: %w", subject, err)
	}
	return subject, nil
}
