package platform

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"msgmap/internal/messages"

	"github.com/joho/godotenv"
)

// FlagsConfig holds all boolean or string flags for the app.
type FlagsConfig struct {
	// Headless disables the HTTP server when true.
	Headless bool
	LogLevel string
}

// AppConfig contains the configuration for the app.
type AppConfig struct {
	SchemaPath string
	Flags      *FlagsConfig
	NatsCfg    *EmbeddedServerConfig
	HTTPSrvCfg *HTTPServerConfig
}

// LoadAppConfig loads .env (when present) and overlays MSGMAP_* environment
// variables on the defaults.
func LoadAppConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{
		SchemaPath: messages.DefaultSchemaPath,
		Flags:      defaultFlagsCfg(),
		NatsCfg:    defaultNatsCfg(),
		HTTPSrvCfg: defaultHTTPServerCfg(),
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from lookup; unset variables keep their defaults.
func (c *AppConfig) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MSGMAP_SCHEMA_PATH"); ok && v != "" {
		c.SchemaPath = v
	}
	if v, ok := lookup("MSGMAP_LOG_LEVEL"); ok && v != "" {
		c.Flags.LogLevel = v
	}
	if v, ok := lookup("MSGMAP_NATS_STORE_DIR"); ok && v != "" {
		c.NatsCfg.StoreDir = v
	}
	if v, ok := lookup("MSGMAP_HTTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("MSGMAP_HTTP_PORT: invalid port %q", v)
		}
		c.HTTPSrvCfg.Port = port
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"MSGMAP_HEADLESS", &c.Flags.Headless},
		{"MSGMAP_NATS_IN_PROCESS", &c.NatsCfg.InProcess},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
		*b.dst = parsed
	}
	return nil
}

// LogValue lets the config be logged as one attribute group.
func (c *AppConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("schema", c.SchemaPath),
		slog.Bool("headless", c.Flags.Headless),
		slog.String("log_level", c.Flags.LogLevel),
		slog.Int("http_port", c.HTTPSrvCfg.Port),
		slog.Bool("nats_in_process", c.NatsCfg.InProcess),
		slog.String("nats_store", c.NatsCfg.StoreDir),
	)
}

func defaultFlagsCfg() *FlagsConfig {
	return &FlagsConfig{
		Headless: false,
		LogLevel: "info",
	}
}

// defaultHTTPServerCfg returns sane defaults for the HTTP server.
func defaultHTTPServerCfg() *HTTPServerConfig {
	return &HTTPServerConfig{
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func defaultNatsCfg() *EmbeddedServerConfig {
	return &EmbeddedServerConfig{
		InProcess:     false,
		EnableLogging: true,
		StoreDir:      "./store/js",
	}
}
