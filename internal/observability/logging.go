package observability

import (
	"context"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across the router.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	// WithContext adds the resolution ID and the active span's trace and
	// span IDs found in ctx.
	WithContext(ctx context.Context) Logger
	Sync() error
}

// Field is a structured log field.
type Field = zap.Field

var (
	String   = zap.String
	Int      = zap.Int
	Bool     = zap.Bool
	Error    = zap.Error
	Duration = zap.Duration
)

// LogConfig selects the level, encoding and destination of a Logger.
// Format is "json" or "console"; Output is "stderr" or "stdout".
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// DefaultLogConfig logs JSON at info to stderr. Command output owns stdout.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "json", Output: "stderr"}
}

type zapLogger struct {
	z *zap.Logger
}

// NewLogger builds a zap backed Logger.
func NewLogger(cfg LogConfig) (Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	encoder := zapcore.NewJSONEncoder(enc)
	if cfg.Format == "console" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(enc)
	}

	sink := zapcore.Lock(os.Stderr)
	if cfg.Output == "stdout" {
		sink = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return &zapLogger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// NewLoggerFromZap wraps an existing zap logger.
func NewLoggerFromZap(z *zap.Logger) Logger {
	return &zapLogger{z: z}
}

// NopLogger discards everything.
func NopLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *zapLogger) Sync() error                       { return l.z.Sync() }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	var fields []Field
	if id := ResolutionIDFromContext(ctx); id != "" {
		fields = append(fields, String("resolution_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			String("trace_id", sc.TraceID().String()),
			String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Logr adapts l for logr consumers such as the OpenTelemetry SDK. Loggers
// not backed by zap get a discarding logr.
func Logr(l Logger) logr.Logger {
	if zl, ok := l.(*zapLogger); ok {
		return zapr.NewLogger(zl.z)
	}
	return logr.Discard()
}

type resolutionIDKey struct{}

// ContextWithResolutionID tags ctx with the ID of the resolution in flight.
func ContextWithResolutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, resolutionIDKey{}, id)
}

// ResolutionIDFromContext returns the resolution ID in ctx, or "".
func ResolutionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(resolutionIDKey{}).(string)
	return id
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// SetGlobalLogger replaces the process-wide logger. nil restores the default.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// L returns the process-wide logger, or a default one when none is set.
func L() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	l, _ = NewLogger(DefaultLogConfig())
	return l
}
