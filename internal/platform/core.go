package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"msgmap/internal/messages"
	"msgmap/internal/runtime"

	"github.com/nats-io/nats.go/jetstream"
)

// EnsureStreams creates the COMMAND and EVENT streams, updating them when
// they already exist.
func EnsureStreams(ctx context.Context, js jetstream.JetStream, storage jetstream.StorageType) error {
	configs := []jetstream.StreamConfig{
		{
			Name:      messages.CommandStream,
			Subjects:  []string{messages.CommandSubjects},
			Retention: jetstream.WorkQueuePolicy,
			Storage:   storage,
		},
		{
			Name:     messages.EventStream,
			Subjects: []string{messages.EventSubjects},
			Storage:  storage,
		},
	}
	for _, cfg := range configs {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("stream %s: %w", cfg.Name, err)
		}
	}
	slog.Info("Streams ready", "streams", []string{messages.CommandStream, messages.EventStream})
	return nil
}

// LogHandler is the default route of the serve consumer: it logs and counts
// every message.
func LogHandler(_ context.Context, msg *messages.Decoded) error {
	MessagesConsumed.WithLabelValues(msg.Kind.String(), msg.MessageType).Inc()
	slog.Info("Message received", "kind", msg.Kind, "message_type", msg.MessageType, "wire_name", msg.WireName, "bytes", len(msg.Payload))
	return nil
}

// Run starts the embedded NATS server, the streams and consumers, and unless
// headless the HTTP API. It blocks until ctx is done or a component fails.
func Run(ctx context.Context, cfg *AppConfig, reg *messages.Registry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nc, _, err := RunEmbeddedServer(ctx, *cfg.NatsCfg)
	if err != nil {
		return err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("JetStream context: %w", err)
	}
	if err := EnsureStreams(ctx, js, jetstream.FileStorage); err != nil {
		return err
	}

	router := messages.NewRouter(reg)
	router.Default(LogHandler)
	consumer := runtime.NewMessageConsumer(js, router)
	if err := consumer.Start(ctx, messages.CommandStream, "msgmap-commands", messages.CommandSubjects); err != nil {
		return err
	}
	if err := consumer.Start(ctx, messages.EventStream, "msgmap-events", messages.EventSubjects); err != nil {
		return err
	}

	var httpErr <-chan error
	if !cfg.Flags.Headless {
		InitMetrics()
		api := NewAPI(reg, messages.NewPublisher(js, reg))
		httpErr = RunHTTPServer(ctx, NewRouter(api), *cfg.HTTPSrvCfg)
	}

	slog.Info("msgmap is up", "config", cfg)
	select {
	case <-ctx.Done():
		slog.Info("Run: shutdown requested")
		return nil
	case err := <-httpErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}
