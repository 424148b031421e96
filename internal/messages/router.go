package messages

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc handles one decoded message.
type HandlerFunc func(ctx context.Context, msg *Decoded) error

// Router dispatches envelopes to handlers registered per message type.
type Router struct {
	reg *Registry

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	fallback HandlerFunc
}

// NewRouter returns an empty router over reg.
func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg, handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for messageType, replacing any earlier handler. The
// message type must exist in the schema.
func (rt *Router) Handle(messageType string, fn HandlerFunc) error {
	if _, err := rt.reg.KindOf(messageType); err != nil {
		return err
	}
	if fn == nil {
		return invalid("Handle", messageType, "handler is nil")
	}
	rt.mu.Lock()
	rt.handlers[messageType] = fn
	rt.mu.Unlock()
	return nil
}

// Registry returns the registry the router resolves names with.
func (rt *Router) Registry() *Registry { return rt.reg }

// Default sets the handler used for message types with no handler of their own.
func (rt *Router) Default(fn HandlerFunc) {
	rt.mu.Lock()
	rt.fallback = fn
	rt.mu.Unlock()
}

// Handled returns the message types with a registered handler.
func (rt *Router) Handled() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]string, 0, len(rt.handlers))
	for _, name := range rt.reg.AllMessageNames() {
		if _, ok := rt.handlers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Dispatch decodes data and calls the matching handler. Decode failures are
// returned as *ValidationError and no handler runs.
func (rt *Router) Dispatch(ctx context.Context, data []byte) error {
	msg, err := rt.reg.Unwrap(data)
	if err != nil {
		return err
	}
	return rt.Route(ctx, msg)
}

// Route calls the handler for an already decoded message.
func (rt *Router) Route(ctx context.Context, msg *Decoded) error {
	rt.mu.RLock()
	fn, ok := rt.handlers[msg.MessageType]
	if !ok {
		fn = rt.fallback
	}
	rt.mu.RUnlock()

	if fn == nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedMessage, msg.MessageType)
	}
	return fn(ctx, msg)
}

// Expect returns a router that passes messageType to fn and rejects every
// other message type with ErrUnexpectedMessage.
func Expect(reg *Registry, messageType string, fn HandlerFunc) (*Router, error) {
	rt := NewRouter(reg)
	if err := rt.Handle(messageType, fn); err != nil {
		return nil, err
	}
	rt.Default(func(_ context.Context, msg *Decoded) error {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedMessage, msg.MessageType, messageType)
	})
	return rt, nil
}
