package logger

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging backend configuration
type Config struct {
	// Level is the minimum severity emitted. Defaults to "info".
	Level string

	// Format selects the encoding: "json" or "console". Defaults to "json".
	Format string
}

// New creates a zap-backed Logger writing to stdout.
func New(cfg Config) (Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "", "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl.zapLevel())
	return NewZap(zap.New(core)), nil
}

// NewZap wraps an existing zap.Logger as a Logger.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{l: l}
}

// Nop returns a Logger that discards every record.
func Nop() Logger {
	return NewZap(zap.NewNop())
}

type zapLogger struct {
	l *zap.Logger
}

func (z *zapLogger) Emit(level Level, fields Fields, msg string) {
	if ce := z.l.Check(level.zapLevel(), msg); ce != nil {
		ce.Write(zapFields(fields)...)
	}
}

func (z *zapLogger) Child(fields Fields) Logger {
	return &zapLogger{l: z.l.With(zapFields(fields)...)}
}

// zapLevel maps a Level to zap's scale. zap has no trace level, so trace
// records are emitted at debug.
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case TraceLevel, DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// zapFields converts a field map to zap fields in a stable key order.
func zapFields(fields Fields) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zf := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	return zf
}
