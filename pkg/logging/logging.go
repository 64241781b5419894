// Package logging builds the loggers used across MedVault: a tinted
// slog logger for application output and a logrus logger for the badger
// backed blob store, which reports through logrus.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/sirupsen/logrus"
)

// Options controls logger construction.
type Options struct {
	// Level is the minimum level. Defaults to Info.
	Level slog.Level
	// NoColor disables ANSI colors, for non-terminal output.
	NoColor bool
	// Writer overrides the output, defaulting to stderr.
	Writer io.Writer
}

// New builds the application logger.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.RFC3339,
		AddSource:  opts.Level <= slog.LevelDebug,
		NoColor:    opts.NoColor,
	})
	return slog.New(handler)
}

// NewStoreLogger builds the logrus logger handed to the blob store.
// Badger chatter stays at warning level unless debug is requested.
func NewStoreLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// ParseLevel maps a config string onto a slog level. Unknown strings
// fall back to Info.
func ParseLevel(s string) slog.Level {
	switch s {
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
