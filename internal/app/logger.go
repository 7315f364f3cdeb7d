package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app-scoped slog.Logger from the -log-level and
// -log-format flags. The global logger is left alone so two App instances
// never share handlers. Unrecognized level strings fall back to info;
// cli.Parse rejects them before they get here.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler)
}
