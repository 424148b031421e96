package platform

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"msgmap/internal/messages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		SchemaPath: messages.DefaultSchemaPath,
		Flags:      defaultFlagsCfg(),
		NatsCfg:    defaultNatsCfg(),
		HTTPSrvCfg: defaultHTTPServerCfg(),
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.applyEnv(envLookup(map[string]string{
		"MSGMAP_SCHEMA_PATH":     "/tmp/Message.json",
		"MSGMAP_HTTP_PORT":       "9090",
		"MSGMAP_NATS_STORE_DIR":  "/tmp/js",
		"MSGMAP_NATS_IN_PROCESS": "true",
		"MSGMAP_HEADLESS":        "1",
		"MSGMAP_LOG_LEVEL":       "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/Message.json", cfg.SchemaPath)
	assert.Equal(t, 9090, cfg.HTTPSrvCfg.Port)
	assert.Equal(t, "/tmp/js", cfg.NatsCfg.StoreDir)
	assert.True(t, cfg.NatsCfg.InProcess)
	assert.True(t, cfg.Flags.Headless)
	assert.Equal(t, "debug", cfg.Flags.LogLevel)
}

func TestApplyEnv_KeepsDefaults(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.applyEnv(envLookup(map[string]string{"MSGMAP_HTTP_PORT": ""})))

	assert.Equal(t, messages.DefaultSchemaPath, cfg.SchemaPath)
	assert.Equal(t, 8080, cfg.HTTPSrvCfg.Port)
	assert.False(t, cfg.Flags.Headless)
	assert.Equal(t, "info", cfg.Flags.LogLevel)
	assert.Equal(t, "./store/js", cfg.NatsCfg.StoreDir)
}

func TestApplyEnv_Invalid(t *testing.T) {
	for key, value := range map[string]string{
		"MSGMAP_HTTP_PORT":       "eighty",
		"MSGMAP_HEADLESS":        "maybe",
		"MSGMAP_NATS_IN_PROCESS": "sometimes",
	} {
		err := defaultConfig().applyEnv(envLookup(map[string]string{key: value}))
		assert.ErrorContains(t, err, key)
	}
	assert.Error(t, defaultConfig().applyEnv(envLookup(map[string]string{"MSGMAP_HTTP_PORT": "70000"})))
}

func TestLoadAppConfig_Env(t *testing.T) {
	t.Setenv("MSGMAP_HTTP_PORT", "8181")

	cfg, err := LoadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.HTTPSrvCfg.Port)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "wire_name", "TOGGLE_PLAY")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "TOGGLE_PLAY", line["wire_name"])
	assert.Contains(t, line, "source")
}

func TestNATSServerLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewNATSServerLogger(NewLogger(&buf, "info"))
	l.Noticef("quiet %d", 1)
	assert.Zero(t, buf.Len())

	l.Errorf("boom %s", "now")
	assert.Contains(t, buf.String(), `"msg":"boom now"`)
	assert.Contains(t, buf.String(), `"component":"nats"`)
}
