// Package logging builds the application's *slog.Logger.
//
// TEXT vs JSON:
// In development a human reads the terminal, so logs are key=value text. Anywhere
// else logs go to a collector, so they are one JSON object per line.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a logger writing to stdout for the given APP_ENV and level.
func New(env string, level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, env, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, env string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if env == "development" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With(slog.String("env", env))
}
