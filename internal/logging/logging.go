// Package logging configures the process-wide slog logger. Components obtain
// module-scoped child loggers so every record carries its origin.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Options selects the handler and level for the process logger.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init builds the default logger. Safe to call once at startup; components
// created before Init fall back to a stderr text handler at info level.
func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		h = slog.NewTextHandler(out, hopts)
	}
	defaultLogger = slog.New(h.WithAttrs([]slog.Attr{
		slog.String("service", "axisconnect"),
	}))
	slog.SetDefault(defaultLogger)
}

// Default returns the process logger, initializing a fallback if needed.
func Default() *slog.Logger {
	if defaultLogger == nil {
		Init(Options{})
	}
	return defaultLogger
}

// NewModuleLogger creates a child logger tagged with a module name.
func NewModuleLogger(module string) *slog.Logger {
	return Default().With(slog.String("module", module))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
