package messages

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// KIND - closed set of message categories
// =============================================================================

// Kind says whether a message is a Command or an Event.
type Kind int

const (
	KindUnknown Kind = iota
	KindCommand
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Suffix is the identifier suffix that marks a message name of this kind.
func (k Kind) Suffix() string {
	switch k {
	case KindCommand:
		return "Command"
	case KindEvent:
		return "Event"
	default:
		return ""
	}
}

// NameProperty is the payload property that carries the wire name.
func (k Kind) NameProperty() string {
	switch k {
	case KindCommand:
		return "command_name"
	case KindEvent:
		return "event_name"
	default:
		return ""
	}
}

// ParseKind accepts "command" or "event" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "command":
		return KindCommand, nil
	case "event":
		return KindEvent, nil
	default:
		return KindUnknown, invalid("ParseKind", s, `kind must be "command" or "event"`)
	}
}

var messageNameRegex = regexp.MustCompile(`^[A-Za-z_]+(Command|Event)$`)

// ClassifyName derives the Kind of a message name from its suffix.
func ClassifyName(name string) (Kind, bool) {
	m := messageNameRegex.FindStringSubmatch(name)
	if m == nil {
		return KindUnknown, false
	}
	if m[1] == "Command" {
		return KindCommand, true
	}
	return KindEvent, true
}

// =============================================================================
// REGISTRY
// =============================================================================

type wireKey struct {
	kind Kind
	wire string
}

// Registry resolves message names to wire names and back. All derived tables
// are built on first use and shared read-only afterwards; a Registry is safe
// for concurrent use.
type Registry struct {
	doc *Document

	namesOnce sync.Once
	names     []string
	commands  []string
	events    []string
	kinds     map[string]Kind

	wireOnce sync.Once
	toWire   map[string]string
	byKind   map[wireKey]string
	byWire   map[string][]string
	wireErr  error
}

// NewRegistry wraps a loaded document. Nothing is computed until asked for.
func NewRegistry(doc *Document) *Registry {
	return &Registry{doc: doc}
}

// Document returns the schema the registry was built from.
func (r *Registry) Document() *Document { return r.doc }

func (r *Registry) buildNames() {
	r.namesOnce.Do(func() {
		r.kinds = make(map[string]Kind)
		for name := range r.doc.Definitions {
			kind, ok := ClassifyName(name)
			if !ok {
				continue
			}
			r.kinds[name] = kind
			r.names = append(r.names, name)
			if kind == KindCommand {
				r.commands = append(r.commands, name)
			} else {
				r.events = append(r.events, name)
			}
		}
		sort.Strings(r.names)
		sort.Strings(r.commands)
		sort.Strings(r.events)
	})
}

// AllMessageNames returns every definition named like a Command or Event,
// sorted.
func (r *Registry) AllMessageNames() []string {
	r.buildNames()
	return append([]string(nil), r.names...)
}

// AllCommandNames returns the message names ending in Command.
func (r *Registry) AllCommandNames() []string {
	r.buildNames()
	return append([]string(nil), r.commands...)
}

// AllEventNames returns the message names ending in Event.
func (r *Registry) AllEventNames() []string {
	r.buildNames()
	return append([]string(nil), r.events...)
}

// KindOf validates messageType and returns its kind.
func (r *Registry) KindOf(messageType string) (Kind, error) {
	return r.kindOf("KindOf", messageType)
}

func (r *Registry) kindOf(op, messageType string) (Kind, error) {
	if messageType == "" {
		return KindUnknown, invalid(op, "", "message type is required")
	}
	kind, ok := ClassifyName(messageType)
	if !ok {
		return KindUnknown, invalid(op, messageType, "message type must end in Command or Event")
	}
	r.buildNames()
	if _, ok := r.kinds[messageType]; !ok {
		return KindUnknown, notFound(op, messageType, "message type is not defined in the schema")
	}
	return kind, nil
}

// MessageTypeToWireName returns the wire name declared by the pattern of the
// message's command_name or event_name property. The pattern is returned
// verbatim; it is never interpreted as a regular expression.
func (r *Registry) MessageTypeToWireName(messageType string) (string, error) {
	const op = "MessageTypeToWireName"
	kind, err := r.kindOf(op, messageType)
	if err != nil {
		return "", err
	}
	return r.extractWireName(op, messageType, kind)
}

func (r *Registry) extractWireName(op, messageType string, kind Kind) (string, error) {
	node, _ := r.doc.Definition(messageType)
	prop := node.Property(kind.NameProperty())
	if prop == nil {
		return "", invalid(op, messageType, fmt.Sprintf("definition has no %s property", kind.NameProperty()))
	}
	if prop.Pattern == "" {
		return "", invalid(op, messageType, fmt.Sprintf("%s property has no pattern", kind.NameProperty()))
	}
	return prop.Pattern, nil
}

func (r *Registry) buildWireIndex() {
	r.wireOnce.Do(func() {
		r.buildNames()
		r.toWire = make(map[string]string, len(r.names))
		r.byKind = make(map[wireKey]string, len(r.names))
		r.byWire = make(map[string][]string, len(r.names))

		var errs []error
		for _, name := range r.names {
			kind := r.kinds[name]
			wire, err := r.extractWireName("buildWireIndex", name, kind)
			if err != nil {
				slog.Warn("Message has no wire name, leaving it unresolvable", "message_type", name, "err", err)
				continue
			}
			key := wireKey{kind: kind, wire: wire}
			if other, dup := r.byKind[key]; dup {
				errs = append(errs, fmt.Errorf("%s wire name %q is declared by both %s and %s", kind, wire, other, name))
				continue
			}
			r.toWire[name] = wire
			r.byKind[key] = name
			r.byWire[wire] = append(r.byWire[wire], name)
		}
		if len(errs) > 0 {
			r.wireErr = &SchemaLoadError{Path: r.doc.Path(), Err: errors.Join(errs...)}
		}
	})
}

// WireNameToMessageType resolves a wire name back to its message name. A wire
// name declared by both a Command and an Event is rejected as ambiguous; use
// LookupWireName for those.
func (r *Registry) WireNameToMessageType(wireName string) (string, error) {
	const op = "WireNameToMessageType"
	if wireName == "" {
		return "", invalid(op, "", "wire name is required")
	}
	r.buildWireIndex()
	if r.wireErr != nil {
		return "", r.wireErr
	}
	names := r.byWire[wireName]
	switch len(names) {
	case 0:
		return "", notFound(op, wireName, "no message declares this wire name")
	case 1:
		return names[0], nil
	default:
		return "", invalid(op, wireName, "wire name is shared by "+strings.Join(names, " and ")+"; look it up by kind")
	}
}

// LookupWireName resolves a wire name within one kind.
func (r *Registry) LookupWireName(kind Kind, wireName string) (string, error) {
	const op = "LookupWireName"
	if kind != KindCommand && kind != KindEvent {
		return "", invalid(op, wireName, "kind must be command or event")
	}
	if wireName == "" {
		return "", invalid(op, "", "wire name is required")
	}
	r.buildWireIndex()
	if r.wireErr != nil {
		return "", r.wireErr
	}
	name, ok := r.byKind[wireKey{kind: kind, wire: wireName}]
	if !ok {
		return "", notFound(op, wireName, "no "+kind.String()+" declares this wire name")
	}
	return name, nil
}
