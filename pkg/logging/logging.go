// Package logging provides the leveled logging interface injected into
// commands. It lets commands and middleware log debug, info, warn, and error
// messages without being coupled to a specific logging implementation, and
// exposes the level model the verbosity converter maps CLI counts onto.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders log severities from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel resolves a level name case-insensitively. "WARNING" is accepted
// as an alias for WARN. Empty or unknown names fail.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "":
		return 0, fmt.Errorf("log level cannot be empty")
	default:
		return 0, fmt.Errorf("unknown log level '%s'", name)
	}
}

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Level() Level
}

// LevelLogger implements Logger with a mutable threshold. Messages below the
// threshold are discarded.
type LevelLogger struct {
	name  string
	level Level
	out   *log.Logger
}

// New creates a leveled logger writing to stderr. The name is prepended to
// all messages.
func New(name string, level Level) *LevelLogger {
	return NewWithWriter(name, level, os.Stderr)
}

// NewWithWriter creates a leveled logger writing to the given writer.
func NewWithWriter(name string, level Level, w io.Writer) *LevelLogger {
	prefix := ""
	if name != "" {
		prefix = "[" + name + "] "
	}
	return &LevelLogger{name: name, level: level, out: log.New(w, prefix, log.LstdFlags)}
}

// Name returns the logger's name.
func (l *LevelLogger) Name() string { return l.name }

// Level returns the current threshold.
func (l *LevelLogger) Level() Level { return l.level }

// SetLevel replaces the threshold.
func (l *LevelLogger) SetLevel(level Level) { l.level = level }

func (l *LevelLogger) logf(level Level, tag, format string, args ...any) {
	if level < l.level {
		return
	}
	l.out.Printf(tag+" "+format, args...)
}

func (l *LevelLogger) Debug(format string, args ...any) {
	l.logf(LevelDebug, "DEBUG:", format, args...)
}

func (l *LevelLogger) Info(format string, args ...any) {
	l.logf(LevelInfo, "INFO:", format, args...)
}

func (l *LevelLogger) Warn(format string, args ...any) {
	l.logf(LevelWarn, "WARN:", format, args...)
}

func (l *LevelLogger) Error(format string, args ...any) {
	l.logf(LevelError, "ERROR:", format, args...)
}

// registry holds named loggers so repeated lookups of the same name return
// the same instance, mirroring how commands and middleware share a logger by
// command path. Configure-before-use: the registry is not synchronized.
var registry = map[string]*LevelLogger{}

// Get returns the named logger, creating it at LevelWarn on first use.
func Get(name string) *LevelLogger {
	if l, ok := registry[name]; ok {
		return l
	}
	l := New(name, LevelWarn)
	registry[name] = l
	return l
}

// ResetRegistry clears the named-logger registry. Intended for tests.
func ResetRegistry() {
	registry = map[string]*LevelLogger{}
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...any) {}
func (l *noopLogger) Info(format string, args ...any)  {}
func (l *noopLogger) Warn(format string, args ...any)  {}
func (l *noopLogger) Error(format string, args ...any) {}
func (l *noopLogger) Level() Level                     { return LevelError }

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   Level
	Message string
}

// BufferLogger captures log messages for testing.
// Exported for use in test assertions.
type BufferLogger struct {
	Messages  []LogMessage
	Threshold Level
}

// NewBufferLogger creates a logger that captures every message for
// inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{Messages: make([]LogMessage, 0), Threshold: LevelDebug}
}

func (l *BufferLogger) capture(level Level, format string, args ...any) {
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...any) { l.capture(LevelDebug, format, args...) }
func (l *BufferLogger) Info(format string, args ...any)  { l.capture(LevelInfo, format, args...) }
func (l *BufferLogger) Warn(format string, args ...any)  { l.capture(LevelWarn, format, args...) }
func (l *BufferLogger) Error(format string, args ...any) { l.capture(LevelError, format, args...) }
func (l *BufferLogger) Level() Level                     { return l.Threshold }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level Level) bool {
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}

// defaultLogger is the package-level default logger.
var defaultLogger Logger = New("", LevelWarn)

// Default returns the package default logger.
func Default() Logger {
	return defaultLogger
}

// SetDefault sets the package default logger.
// This is useful for testing or to configure logging globally.
func SetDefault(l Logger) {
	defaultLogger = l
}
