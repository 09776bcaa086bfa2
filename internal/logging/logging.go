// Package logging sets up the structured logger the CLI and the launcher
// share for --debug-log output: a slog.TextHandler writing to whatever
// sink the run was given, discarding everything when no sink was
// requested at all.
package logging

import (
	"io"
	"log/slog"
)

// New builds a logger writing to sink at the given level. A nil sink
// yields a logger that discards everything, the same "safe to always
// call .logger.Debug(...)" shape the rest of the ambient stack relies on.
func New(sink io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if sink == nil {
		sink = io.Discard
	}
	return slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level}))
}
