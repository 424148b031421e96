package platform

import (
	"context"
	"testing"
	"time"

	"msgmap/internal/messages"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedServer_StreamsAndPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	nc, ns, err := RunEmbeddedServer(ctx, EmbeddedServerConfig{Port: -1, StoreDir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, ns.JetStreamEnabled())

	js, err := jetstream.New(nc)
	require.NoError(t, err)
	require.NoError(t, EnsureStreams(ctx, js, jetstream.MemoryStorage))
	require.NoError(t, EnsureStreams(ctx, js, jetstream.MemoryStorage), "second call updates in place")

	reg := testRegistry(t)
	pub := messages.NewPublisher(js, reg)
	subject, err := pub.Publish(ctx, "PlayStateEvent", []byte(`{"new_play_state": false}`))
	require.NoError(t, err)
	assert.Equal(t, "event.PLAY_STATE", subject)

	_, err = pub.Publish(ctx, "PlayStateEvent", []byte(`{"new_play_state": "off"}`))
	assert.ErrorIs(t, err, messages.ErrValidation)

	stream, err := js.Stream(ctx, messages.EventStream)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	cmd, err := js.Stream(ctx, messages.CommandStream)
	require.NoError(t, err)
	assert.Equal(t, jetstream.WorkQueuePolicy, cmd.CachedInfo().Config.Retention)
}

func TestRun_HeadlessStopsOnCancel(t *testing.T) {
	cfg := &AppConfig{
		SchemaPath: testSchema,
		Flags:      &FlagsConfig{Headless: true, LogLevel: "info"},
		NatsCfg:    &EmbeddedServerConfig{InProcess: true, StoreDir: t.TempDir()},
		HTTPSrvCfg: defaultHTTPServerCfg(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, testRegistry(t)) }()

	time.Sleep(time.Second)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			// cancelled before startup finished
			assert.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLogHandler(t *testing.T) {
	reg := testRegistry(t)
	data, err := reg.Wrap("NextSongCommand", nil)
	require.NoError(t, err)
	msg, err := reg.Unwrap(data)
	require.NoError(t, err)

	require.NoError(t, LogHandler(context.Background(), msg))
}
