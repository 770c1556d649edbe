// Package logger builds the application slog.Logger from config.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/taxtag/pkg/config"
)

// New creates a slog.Logger based on the provided configuration.
// Invalid values default to Info level and Text format.
func New(cfg *config.LogConfig) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is like New but writes to the given writer.
func NewWithWriter(cfg *config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level. Valid levels
// are "debug", "info", "warn", "error" (case-insensitive); invalid
// levels default to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
