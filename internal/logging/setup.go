// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// NewTextHandler builds a human-readable slog handler for the given level.
// The "trace" level enables caller reporting on top of debug.
func NewTextHandler(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	opts := log.Options{Level: log.InfoLevel}
	switch strings.ToLower(logLevel) {
	case "trace":
		opts.Level = log.DebugLevel
		opts.ReportCaller = true
		opts.ReportTimestamp = true
	case "debug":
		opts.Level = log.DebugLevel
		opts.ReportTimestamp = true
	case "warn", "warning":
		opts.Level = log.WarnLevel
	case "error":
		opts.Level = log.ErrorLevel
	}

	return log.NewWithOptions(writer, opts)
}

// NewJSONHandler builds a machine-readable slog handler for the given level.
func NewJSONHandler(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stdout
	}

	level := slog.LevelInfo
	addSource := false
	switch strings.ToLower(logLevel) {
	case "trace":
		level = slog.LevelDebug
		addSource = true
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level, AddSource: addSource})
}

// Setup installs the default logger for the process.
func Setup(logLevel string, json bool) {
	var handler slog.Handler
	if json {
		handler = NewJSONHandler(logLevel, nil)
	} else {
		handler = NewTextHandler(logLevel, nil)
	}
	slog.SetDefault(slog.New(handler))
}
