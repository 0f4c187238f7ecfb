package app

import (
	"io"
	"log/slog"
)

// logLevels maps the level names the CLI validates onto slog levels.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the logger the whole run writes through, without
// touching the global default. Level and format arrive pre-validated
// from the CLI; anything unrecognized falls back to info-level text so
// a bad logger can never block a submission run.
func newLogger(level, format string, outW io.Writer) *slog.Logger {
	lvl, ok := logLevels[level]
	if !ok {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
