package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"msgmap/internal/messages"

	"github.com/nats-io/nats.go/jetstream"
)

// MessageConsumer feeds JetStream messages into a Router.
type MessageConsumer struct {
	js     jetstream.JetStream
	router *messages.Router
}

// NewMessageConsumer creates a consumer that dispatches through router.
func NewMessageConsumer(js jetstream.JetStream, router *messages.Router) *MessageConsumer {
	return &MessageConsumer{js: js, router: router}
}

// Start creates (or updates) a durable consumer on stream and dispatches every
// message it receives until ctx is done.
func (mc *MessageConsumer) Start(ctx context.Context, stream, durable string, subjects ...string) error {
	_, err := mc.js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:        durable,
		AckPolicy:      jetstream.AckExplicitPolicy,
		FilterSubjects: subjects,
	})
	if err != nil {
		return fmt.Errorf("create %s consumer: %w", durable, err)
	}
	consumer, err := mc.js.Consumer(ctx, stream, durable)
	if err != nil {
		return fmt.Errorf("get %s consumer: %w", durable, err)
	}
	cc, err := consumer.Consume(func(msg jetstream.Msg) { mc.handle(ctx, msg) })
	if err != nil {
		return fmt.Errorf("consume %s: %w", durable, err)
	}
	slog.Info("Message consumer started", "stream", stream, "durable", durable, "subjects", subjects)

	go func() {
		<-ctx.Done()
		cc.Stop()
		slog.Info("Message consumer stopped", "stream", stream, "durable", durable)
	}()
	return nil
}

// handle acks handled messages, terminates messages that can never succeed and
// naks the rest for redelivery.
func (mc *MessageConsumer) handle(ctx context.Context, msg jetstream.Msg) {
	err := mc.dispatch(ctx, msg.Subject(), msg.Data())
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, messages.ErrValidation), errors.Is(err, messages.ErrUnsupportedMessage):
		slog.Warn("Dropping undeliverable message", "subject", msg.Subject(), "err", err)
		_ = msg.Term()
	default:
		slog.Error("Message handler failed", "subject", msg.Subject(), "err", err)
		_ = msg.Nak()
	}
}

func (mc *MessageConsumer) dispatch(ctx context.Context, subject string, data []byte) error {
	kind, wire, err := messages.ParseSubject(subject)
	if err != nil {
		return err
	}
	msg, err := mc.router.Registry().Unwrap(data)
	if err != nil {
		return err
	}
	if msg.Kind != kind || msg.WireName != wire {
		return &messages.ValidationError{
			Op:     "Consume",
			Value:  subject,
			Reason: fmt.Sprintf("payload carries %s %s", msg.Kind, msg.WireName),
		}
	}
	return mc.router.Route(ctx, msg)
}
