// Package app wires the application together: logger construction
// (console plus a rotated log file), run definition loading, and the
// database/study orchestration run.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fjordsim/sweepforge/internal/fsutil"
)

// logfileBackups bounds log file rotation across reruns.
const logfileBackups = 5

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	logFile *os.File
}

// NewApp is the constructor for the main application. It returns a
// fully initialized App instance with its own isolated logger, teeing
// log output to the configured log file when one is set.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	a := &App{outW: outW}

	logW := outW
	if cfg.Logfile != "" {
		if err := fsutil.RotateBounded(cfg.Logfile, logfileBackups); err != nil {
			return nil, fmt.Errorf("rotate log file: %w", err)
		}
		f, err := os.OpenFile(cfg.Logfile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		logW = io.MultiWriter(outW, f)
	}

	a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	a.logger.Debug("Logger configured successfully.")
	return a, nil
}

// Logger returns the application's logger. This is primarily for
// testing.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Close releases the log file, if one was opened.
func (a *App) Close() error {
	if a.logFile == nil {
		return nil
	}
	return a.logFile.Close()
}
