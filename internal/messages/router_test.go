package messages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Dispatch(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")
	rt := NewRouter(reg)

	var got *Decoded
	require.NoError(t, rt.Handle("TogglePlayCommand", func(_ context.Context, m *Decoded) error {
		got = m
		return nil
	}))
	assert.Equal(t, []string{"TogglePlayCommand"}, rt.Handled())

	data, err := reg.Wrap("TogglePlayCommand", []byte(`{"play_state": false}`))
	require.NoError(t, err)
	require.NoError(t, rt.Dispatch(context.Background(), data))
	require.NotNil(t, got)
	assert.Equal(t, "TOGGLE_PLAY", got.WireName)

	// No handler and no default.
	data, err = reg.Wrap("NextSongCommand", nil)
	require.NoError(t, err)
	err = rt.Dispatch(context.Background(), data)
	assert.ErrorIs(t, err, ErrUnsupportedMessage)
	assert.Contains(t, err.Error(), "NextSongCommand")

	// Default picks up the rest.
	var fallback string
	rt.Default(func(_ context.Context, m *Decoded) error {
		fallback = m.MessageType
		return nil
	})
	require.NoError(t, rt.Dispatch(context.Background(), data))
	assert.Equal(t, "NextSongCommand", fallback)
}

func TestRouter_HandlerErrorsPropagate(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")
	rt := NewRouter(reg)
	boom := errors.New("boom")
	require.NoError(t, rt.Handle("PlayStateEvent", func(context.Context, *Decoded) error { return boom }))

	data, err := reg.Wrap("PlayStateEvent", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, rt.Dispatch(context.Background(), data), boom)
}

func TestRouter_Handle_Invalid(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")
	rt := NewRouter(reg)

	assert.ErrorIs(t, rt.Handle("florbus", func(context.Context, *Decoded) error { return nil }), ErrValidation)
	assert.ErrorIs(t, rt.Handle("RewindCommand", func(context.Context, *Decoded) error { return nil }), ErrValidation)
	assert.ErrorIs(t, rt.Handle("NextSongCommand", nil), ErrValidation)
	assert.Empty(t, rt.Handled())
}

func TestRouter_DispatchRejectsBadEnvelope(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")
	rt := NewRouter(reg)
	called := false
	rt.Default(func(context.Context, *Decoded) error {
		called = true
		return nil
	})

	err := rt.Dispatch(context.Background(), []byte(`{"command": {"command_name": "REWIND"}}`))
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, called)
}

func TestExpect(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	var seen []string
	rt, err := Expect(reg, "SongPlayingEvent", func(_ context.Context, m *Decoded) error {
		seen = append(seen, m.MessageType)
		return nil
	})
	require.NoError(t, err)

	for _, name := range reg.AllMessageNames() {
		data, err := reg.Wrap(name, nil)
		require.NoError(t, err)

		err = rt.Dispatch(context.Background(), data)
		if name == "SongPlayingEvent" {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrUnexpectedMessage, name)
		}
	}
	assert.Equal(t, []string{"SongPlayingEvent"}, seen)

	_, err = Expect(reg, "florbus", func(context.Context, *Decoded) error { return nil })
	assert.ErrorIs(t, err, ErrValidation)
}
