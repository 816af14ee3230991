// Package logging builds the slog loggers shared by the tlsrelay binaries.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// LevelTrace is below Debug and is used for per-chunk relay events.
const LevelTrace = slog.LevelDebug - 4

// New returns a text logger writing to w. debug lowers the level to Debug;
// trace lowers it further to LevelTrace.
func New(w io.Writer, debug, trace bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case trace:
		level = LevelTrace
	case debug:
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	})
	return slog.New(h)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Trace logs msg at LevelTrace.
func Trace(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}
