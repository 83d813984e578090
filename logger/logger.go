// Package logger defines the structured logging abstraction the request
// observability middleware emits through: a severity scale, a loose field
// map, and a minimal Logger capability satisfied by a zap-backed
// implementation.
package logger

import "fmt"

// Level represents the severity of a log record.
type Level int8

const (
	// TraceLevel is the finest-grained severity, used for per-operation
	// timing records.
	TraceLevel Level = iota

	// DebugLevel is for diagnostic records.
	DebugLevel

	// InfoLevel is the default severity for lifecycle records.
	InfoLevel

	// WarnLevel marks recoverable misuse and degraded conditions.
	WarnLevel

	// ErrorLevel marks failures, including isolated hook failures.
	ErrorLevel

	// FatalLevel marks unrecoverable failures.
	FatalLevel
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

// ParseLevel converts a level name to a Level
func ParseLevel(name string) (Level, error) {
	switch name {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// Fields is a log record's field mapping.
type Fields map[string]any

// Logger is the capability set the middleware requires from a logging
// backend. Implementations must tolerate concurrent Emit calls from many
// simultaneous requests.
type Logger interface {
	// Emit writes one record at the given severity.
	Emit(level Level, fields Fields, msg string)

	// Child returns a logger sharing the underlying sink with the given
	// fields bound to every subsequent record.
	Child(fields Fields) Logger
}
