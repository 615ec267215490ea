package config

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the service logger. GO_ENV=production selects the JSON handler,
// anything else the text handler. LOG_LEVEL accepts debug, info, warn or error and
// falls back to info.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if s := strings.TrimSpace(os.Getenv("LOG_LEVEL")); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			level = slog.LevelInfo
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", "eventease")
}
