package logging

import (
	"log/slog"
	"os"
)

// InitLogger builds the process-wide structured logger as a JSON handler,
// installs it as slog's default, and returns it so callers can derive
// component-scoped loggers (e.g. logger.With("component", "engine")) without
// going back through the global.
//
// Attribute names are renamed to line up with the engine's own
// append-only event journal (simevents.Event: tick/type/data) rather than
// slog's generic defaults, so a server log line and a journal event read
// the same way in an aggregator: "observed_at" in place of slog's "time",
// "severity" for "level".
func InitLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "observed_at"
			case slog.LevelKey:
				a.Key = "severity"
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
