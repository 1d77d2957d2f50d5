// Package logging provides the structured logger shared by every stage.
//
// A Logger starts with no output. Setup attaches a debug-level file sink and
// an info-level terminal sink; calling it again on the same Logger is a no-op,
// so repeated setup never duplicates output.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	SinkFile     = "file"
	SinkTerminal = "terminal"
)

type sink struct {
	name    string
	handler slog.Handler
	closer  io.Closer
}

// Logger provides structured logging with a guarded set of output sinks.
type Logger struct {
	mu       sync.Mutex
	level    *slog.LevelVar
	sinks    []sink
	internal *slog.Logger

	// parent and attrs are set on loggers derived with With.
	parent *Logger
	attrs  []any
}

// New creates a logger with the given terminal level and no sinks attached.
func New(level string) *Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(ParseLevel(level))
	l := &Logger{level: lvl}
	l.internal = slog.New(&fanout{})
	return l
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New("info")
}

// ParseLevel maps debug, info, warn and error to slog levels. Unknown
// strings mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Setup attaches a file sink at dir/name (debug level, timestamped) and a
// terminal sink writing to terminal (message only, at the logger's level).
// If any sink is already attached Setup does nothing.
func (l *Logger) Setup(dir, name string, terminal io.Writer) error {
	l = l.root()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.sinks) > 0 {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	l.sinks = append(l.sinks,
		sink{
			name:    SinkFile,
			handler: slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
			closer:  f,
		},
		sink{
			name: SinkTerminal,
			handler: slog.NewTextHandler(terminal, &slog.HandlerOptions{
				Level:       l.level,
				ReplaceAttr: messageOnly,
			}),
		},
	)
	l.rebuild()
	return nil
}

// Sinks lists the names of the attached sinks in attach order.
func (l *Logger) Sinks() []string {
	l = l.root()
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.sinks))
	for i, s := range l.sinks {
		names[i] = s.name
	}
	return names
}

func (l *Logger) rebuild() {
	handlers := make([]slog.Handler, len(l.sinks))
	for i, s := range l.sinks {
		handlers[i] = s.handler
	}
	l.internal = slog.New(&fanout{handlers: handlers})
}

// messageOnly drops time and level from terminal output.
func messageOnly(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
		return slog.Attr{}
	}
	return a
}

// Close releases the file sink. The logger stays usable but silent.
func (l *Logger) Close() error {
	l = l.root()
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, s := range l.sinks {
		if s.closer != nil {
			errs = append(errs, s.closer.Close())
		}
	}
	l.sinks = nil
	l.rebuild()
	return errors.Join(errs...)
}

func (l *Logger) root() *Logger {
	for l.parent != nil {
		l = l.parent
	}
	return l
}

func (l *Logger) logger() *slog.Logger {
	if l.parent != nil {
		return l.parent.logger().With(l.attrs...)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.internal
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger()
}

// Info logs an info level message.
func (l *Logger) Info(msg string, args ...any) {
	l.logger().Info(msg, args...)
}

// Error logs an error level message.
func (l *Logger) Error(msg string, args ...any) {
	l.logger().Error(msg, args...)
}

// Debug logs a debug level message.
func (l *Logger) Debug(msg string, args ...any) {
	l.logger().Debug(msg, args...)
}

// Warn logs a warning level message.
func (l *Logger) Warn(msg string, args ...any) {
	l.logger().Warn(msg, args...)
}

// With creates a child logger with the given attributes. The child shares
// its parent's sinks, including ones attached after the call.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{level: l.level, parent: l, attrs: args}
}

// Log logs a message with the given level and attributes.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l.logger().Log(ctx, level, msg, args...)
}

// fanout sends each record to every handler that accepts its level.
type fanout struct {
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: handlers}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &fanout{handlers: handlers}
}
