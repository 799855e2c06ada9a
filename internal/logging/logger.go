// Package logging provides a small structured-logging facade over log/slog
// so call sites use printf-style methods instead of slog's key/value pairs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is the printf-style logging interface used throughout the engine.
// It is deliberately narrow: components depend on this interface, never on
// *slog.Logger directly, so tests can swap in a recording implementation.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	// With returns a child logger tagged with an additional component name.
	With(component string) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// Config controls how the root logger is constructed.
type Config struct {
	Level  string    // debug|info|warn|error
	Format string    // text|json
	Output io.Writer // defaults to os.Stderr
}

// New builds a root Logger backed by log/slog.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &slogLogger{l: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *slogLogger) Debug(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s *slogLogger) Info(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s *slogLogger) Warn(format string, args ...any)  { s.l.Warn(fmt.Sprintf(format, args...)) }
func (s *slogLogger) Error(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }

func (s *slogLogger) With(component string) Logger {
	return &slogLogger{l: s.l.With("component", component)}
}

// Nop is a Logger that discards everything, useful as a safe zero-value
// default for components constructed without an explicit logger.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) With(string) Logger   { return nopLogger{} }

// OrNop returns l, or Nop if l is nil, so callers never need a nil check.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}
