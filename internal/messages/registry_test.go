package messages

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestRegistry(t *testing.T, name string) *Registry {
	t.Helper()
	doc, err := LoadSchema("testdata/" + name)
	require.NoError(t, err)
	return NewRegistry(doc)
}

func TestClassifyName(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		ok   bool
	}{
		{"TogglePlayCommand", KindCommand, true},
		{"PlayStateEvent", KindEvent, true},
		{"snake_case_Event", KindEvent, true},
		{"Command", KindUnknown, false},
		{"Event", KindUnknown, false},
		{"Play2Command", KindUnknown, false},
		{"TogglePlayCommands", KindUnknown, false},
		{"Song", KindUnknown, false},
		{"", KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := ClassifyName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Command")
	require.NoError(t, err)
	assert.Equal(t, KindCommand, k)

	k, err = ParseKind(" event ")
	require.NoError(t, err)
	assert.Equal(t, KindEvent, k)

	_, err = ParseKind("response")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegistry_MessageNames(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	assert.Equal(t, []string{
		"ErrorEvent",
		"ListPlaylistsCommand",
		"ListPlaylistsEvent",
		"ListSongsCommand",
		"ListSongsEvent",
		"NextSongCommand",
		"PlayStateEvent",
		"SongPlayingEvent",
		"TogglePlayCommand",
	}, reg.AllMessageNames())
	assert.Equal(t, []string{
		"ListPlaylistsCommand",
		"ListSongsCommand",
		"NextSongCommand",
		"TogglePlayCommand",
	}, reg.AllCommandNames())

	// Stable across calls, and callers cannot corrupt the cache.
	first := reg.AllMessageNames()
	first[0] = "Mutated"
	assert.Equal(t, "ErrorEvent", reg.AllMessageNames()[0])
}

func TestRegistry_PartitionInvariants(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	commands := reg.AllCommandNames()
	events := reg.AllEventNames()

	seen := make(map[string]bool)
	for _, c := range commands {
		assert.True(t, strings.HasSuffix(c, "Command"), c)
		seen[c] = true
	}
	for _, e := range events {
		assert.True(t, strings.HasSuffix(e, "Event"), e)
		assert.False(t, seen[e], "%s is both a command and an event", e)
		seen[e] = true
	}

	all := reg.AllMessageNames()
	assert.Len(t, seen, len(all))
	for _, n := range all {
		assert.True(t, seen[n], "%s missing from partition", n)
	}
}

func TestRegistry_MessageTypeToWireName(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	wire, err := reg.MessageTypeToWireName("ListPlaylistsCommand")
	require.NoError(t, err)
	assert.Equal(t, "LIST_PLAYLISTS", wire)

	wire, err = reg.MessageTypeToWireName("PlayStateEvent")
	require.NoError(t, err)
	assert.Equal(t, "PLAY_STATE", wire)

	for _, name := range reg.AllMessageNames() {
		wire, err := reg.MessageTypeToWireName(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, wire, name)
	}
}

func TestRegistry_MessageTypeToWireName_Invalid(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	tests := []struct {
		name     string
		input    string
		notFound bool
	}{
		{"empty", "", false},
		{"no suffix", "florbus", false},
		{"plain definition", "Song", false},
		{"unknown command", "RewindCommand", true},
		{"unknown event", "RewoundEvent", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := reg.MessageTypeToWireName(tt.input)
			assert.Empty(t, wire)
			require.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "MessageTypeToWireName", ve.Op)
			assert.Equal(t, tt.notFound, IsNotFound(err))
		})
	}
}

func TestRegistry_WireNameToMessageType(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	name, err := reg.WireNameToMessageType("TOGGLE_PLAY")
	require.NoError(t, err)
	assert.Equal(t, "TogglePlayCommand", name)

	name, err = reg.WireNameToMessageType("PLAY_STATE")
	require.NoError(t, err)
	assert.Equal(t, "PlayStateEvent", name)

	_, err = reg.WireNameToMessageType("")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reg.WireNameToMessageType("REWIND")
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, IsNotFound(err))

	// Patterns are literals, not regular expressions.
	_, err = reg.WireNameToMessageType("TOGGLE_.*")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegistry_WireNameToMessageType_Ambiguous(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	_, err := reg.WireNameToMessageType("LIST_SONGS")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "ListSongsCommand and ListSongsEvent")
	assert.False(t, IsNotFound(err))

	name, err := reg.LookupWireName(KindCommand, "LIST_SONGS")
	require.NoError(t, err)
	assert.Equal(t, "ListSongsCommand", name)

	name, err = reg.LookupWireName(KindEvent, "LIST_SONGS")
	require.NoError(t, err)
	assert.Equal(t, "ListSongsEvent", name)
}

func TestRegistry_RoundTrip(t *testing.T) {
	t.Run("by kind", func(t *testing.T) {
		reg := loadTestRegistry(t, "message.schema.json")
		for _, name := range reg.AllMessageNames() {
			wire, err := reg.MessageTypeToWireName(name)
			require.NoError(t, err)
			kind, err := reg.KindOf(name)
			require.NoError(t, err)

			back, err := reg.LookupWireName(kind, wire)
			require.NoError(t, err)
			assert.Equal(t, name, back)
		}
	})

	t.Run("unique wire names", func(t *testing.T) {
		reg := loadTestRegistry(t, "unique_wire.schema.json")
		require.Len(t, reg.AllMessageNames(), 3)
		for _, name := range reg.AllMessageNames() {
			wire, err := reg.MessageTypeToWireName(name)
			require.NoError(t, err)

			back, err := reg.WireNameToMessageType(wire)
			require.NoError(t, err)
			assert.Equal(t, name, back)
		}
	})
}

func TestRegistry_MissingDiscriminator(t *testing.T) {
	reg := loadTestRegistry(t, "broken_names.schema.json")

	_, err := reg.MessageTypeToWireName("NoNameCommand")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "no command_name property")

	_, err = reg.MessageTypeToWireName("NoPatternEvent")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "no pattern")

	// Broken entries are left out of the reverse index; the rest still resolve.
	name, err := reg.WireNameToMessageType("START")
	require.NoError(t, err)
	assert.Equal(t, "StartCommand", name)
}

func TestRegistry_DuplicateWireName(t *testing.T) {
	reg := loadTestRegistry(t, "duplicate_wire.schema.json")

	_, err := reg.WireNameToMessageType("START")
	require.ErrorIs(t, err, ErrSchemaLoad)
	assert.Contains(t, err.Error(), "BeginCommand and StartCommand")

	_, err = reg.LookupWireName(KindCommand, "START")
	assert.ErrorIs(t, err, ErrSchemaLoad)

	// The forward direction does not depend on the reverse index.
	wire, err := reg.MessageTypeToWireName("BeginCommand")
	require.NoError(t, err)
	assert.Equal(t, "START", wire)
}

func TestRegistry_LookupWireName_BadKind(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	_, err := reg.LookupWireName(KindUnknown, "TOGGLE_PLAY")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reg.LookupWireName(KindEvent, "TOGGLE_PLAY")
	assert.True(t, IsNotFound(err))
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	const workers = 16
	results := make(chan string, workers)
	for i := 0; i < workers; i++ {
		go func() {
			name, err := reg.WireNameToMessageType("NEXT_SONG")
			if err != nil {
				results <- err.Error()
				return
			}
			results <- name + "/" + strings.Join(reg.AllEventNames(), ",")
		}()
	}

	want := "NextSongCommand/" + strings.Join(reg.AllEventNames(), ",")
	for i := 0; i < workers; i++ {
		assert.Equal(t, want, <-results)
	}
}

func TestRegistry_FieldSchemas(t *testing.T) {
	reg := loadTestRegistry(t, "message.schema.json")

	fields, err := reg.FieldSchemas("ListSongsEvent")
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, "event_name", fields[0].Name)
	assert.True(t, fields[0].Discriminator)
	assert.True(t, fields[0].Required)
	assert.Equal(t, FieldTypeString, fields[0].Type)

	assert.Equal(t, "songs", fields[1].Name)
	assert.Equal(t, FieldTypeArray, fields[1].Type)
	assert.Equal(t, "Song", fields[1].Ref)
	assert.False(t, fields[1].Required)

	fields, err = reg.FieldSchemas("SongPlayingEvent")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, FieldTypeRef, fields[1].Type)
	assert.Equal(t, "Song", fields[1].Ref)

	_, err = reg.FieldSchemas("florbus")
	assert.ErrorIs(t, err, ErrValidation)
}
