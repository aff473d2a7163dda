// Package logger configures the process-wide slog JSON logger and carries a
// per-run trace ID through context, so every line a daily pipeline run emits
// can be correlated after the fact.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Init builds the JSON logger for one binary, tags every record with the
// service name, and installs it as the slog default so package-level slog
// calls land in the same stream.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)
	slog.SetDefault(logger)

	return logger
}

// WithTraceID attaches a trace ID to the context for downstream stages.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID returns the context's trace ID, or "" when none was set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID derives a run's trace ID from its symbol and start time,
// formatted "{symbol}-{unixNano}". Collisions would need two runs of the
// same symbol in the same nanosecond.
func GenerateTraceID(symbol string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", symbol, ts.UnixNano())
}

// LogWithTrace returns the trace attr for the context, or nil when no trace
// is active. Splat it into a log call: slog.Info("msg", LogWithTrace(ctx)...)
func LogWithTrace(ctx context.Context) []any {
	tid := TraceID(ctx)
	if tid == "" {
		return nil
	}
	return []any{slog.String("trace_id", tid)}
}
