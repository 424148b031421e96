package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedServerConfig holds options for running the embedded server.
type EmbeddedServerConfig struct {
	// InProcess connects the client without a TCP listener.
	InProcess     bool
	EnableLogging bool
	StoreDir      string // JetStream file storage
	// Port of the client listener; 0 uses the NATS default, -1 a random port.
	Port int
}

// RunEmbeddedServer starts a JetStream-enabled NATS server and returns a
// client connected to it. The server shuts down when ctx is done.
func RunEmbeddedServer(ctx context.Context, cfg EmbeddedServerConfig) (*nats.Conn, *server.Server, error) {
	opts := &server.Options{
		ServerName: "msgmap",
		Host:       "127.0.0.1",
		Port:       cfg.Port,
		DontListen: cfg.InProcess,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoSigs:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("create nats server: %w", err)
	}
	if cfg.EnableLogging {
		ns.SetLogger(NewNATSServerLogger(slog.Default()), false, false)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, nil, errors.New("NATS Server timeout")
	}

	var clientOpts []nats.Option
	if cfg.InProcess {
		clientOpts = append(clientOpts, nats.InProcessServer(ns))
	}
	nc, err := nats.Connect(ns.ClientURL(), clientOpts...)
	if err != nil {
		ns.Shutdown()
		return nil, nil, fmt.Errorf("connect to embedded server: %w", err)
	}
	slog.Info("Embedded NATS server ready", "url", ns.ClientURL(), "in_process", cfg.InProcess, "store", cfg.StoreDir)

	go func() {
		<-ctx.Done()
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
		slog.Info("Embedded NATS server stopped")
	}()

	return nc, ns, nil
}
