package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog for structured logging
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger from the logging config.
func NewLogger(config LoggingConfig) *Logger {
	return NewLoggerTo(config, os.Stdout)
}

// NewLoggerTo creates a structured logger writing to the given output.
func NewLoggerTo(config LoggingConfig, output io.Writer) *Logger {
	level := slog.LevelInfo
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{logger: slog.New(handler)}
}

// Slog exposes the underlying slog logger for printf-style adapters.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// WithContext adds execution-scoped fields from ctx to the logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var args []any

	if executionID := ExecutionIDFromContext(ctx); executionID != "" {
		args = append(args, "execution_id", executionID)
	}
	if spanID := SpanIDFromContext(ctx); spanID != "" {
		args = append(args, "span_id", spanID)
	}

	if len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...)}
}

// With adds additional fields to the logger
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs at info level
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs at error level
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// SanitizeAPIKey masks an API key for log output.
func SanitizeAPIKey(key string) string {
	if len(key) <= 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// Context key types
type contextKey string

const (
	executionIDKey contextKey = "execution_id"
	spanIDKey      contextKey = "span_id"
)

// ContextWithExecutionID stores the caller-supplied execution identifier.
func ContextWithExecutionID(ctx context.Context, executionID string) context.Context {
	if executionID == "" {
		return ctx
	}
	return context.WithValue(ctx, executionIDKey, executionID)
}

// ExecutionIDFromContext extracts the execution identifier from ctx.
func ExecutionIDFromContext(ctx context.Context) string {
	if executionID, ok := ctx.Value(executionIDKey).(string); ok {
		return executionID
	}
	return ""
}

// ContextWithSpanID stores the current repo span identifier.
func ContextWithSpanID(ctx context.Context, spanID string) context.Context {
	if spanID == "" {
		return ctx
	}
	return context.WithValue(ctx, spanIDKey, spanID)
}

// SpanIDFromContext extracts the repo span identifier from ctx.
func SpanIDFromContext(ctx context.Context) string {
	if spanID, ok := ctx.Value(spanIDKey).(string); ok {
		return spanID
	}
	return ""
}
