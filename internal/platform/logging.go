package platform

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats-server/v2/server"
)

// InitLogger sets up the global slog logger: JSON to stdout with source.
func InitLogger(level string) {
	slog.SetDefault(NewLogger(os.Stdout, level))
}

// NewLogger builds the JSON logger InitLogger installs.
func NewLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: ParseLevel(level)})
	return slog.New(handler)
}

// ParseLevel maps debug|info|warn|error to a slog level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// natsLoggerAdapter implements the nats-server Logger interface using slog.
type natsLoggerAdapter struct {
	logger *slog.Logger
}

// NewNATSServerLogger routes embedded server logs through logger.
func NewNATSServerLogger(logger *slog.Logger) server.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &natsLoggerAdapter{logger: logger.With("component", "nats")}
}

// Notices are startup chatter; keep them at debug.
func (nl *natsLoggerAdapter) Noticef(format string, v ...any) {
	nl.logger.Debug(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Warnf(format string, v ...any) {
	nl.logger.Warn(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Errorf(format string, v ...any) {
	nl.logger.Error(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Fatalf(format string, v ...any) {
	nl.logger.Error("NATS FATAL: " + fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Debugf(format string, v ...any) {
	nl.logger.Debug(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Tracef(format string, v ...any) {
	nl.logger.Debug("NATS TRACE: " + fmt.Sprintf(format, v...))
}
