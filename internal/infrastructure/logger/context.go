package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationKey
)

// Correlation ties log entries to the request and obligation they belong to
type Correlation struct {
	RequestID      string
	ObligationID   string
	IdempotencyKey string
}

// merge overlays the non-empty values of other
func (c Correlation) merge(other Correlation) Correlation {
	if other.RequestID != "" {
		c.RequestID = other.RequestID
	}
	if other.ObligationID != "" {
		c.ObligationID = other.ObligationID
	}
	if other.IdempotencyKey != "" {
		c.IdempotencyKey = other.IdempotencyKey
	}
	return c
}

// Fields returns the non-empty values as zap fields
func (c Correlation) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if c.RequestID != "" {
		fields = append(fields, zap.String("request_id", c.RequestID))
	}
	if c.ObligationID != "" {
		fields = append(fields, zap.String("obligation_id", c.ObligationID))
	}
	if c.IdempotencyKey != "" {
		fields = append(fields, zap.String("idempotency_key", c.IdempotencyKey))
	}
	return fields
}

// WithCorrelation stores c in ctx. Values already present are kept unless c overrides them.
func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, correlationKey, CorrelationFrom(ctx).merge(c))
}

// CorrelationFrom returns the correlation stored in ctx, or the zero value
func CorrelationFrom(ctx context.Context) Correlation {
	c, _ := ctx.Value(correlationKey).(Correlation)
	return c
}

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// TraceFields returns trace_id and span_id of the span in ctx, or nil without a valid span
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// ForContext annotates logger with the trace and correlation fields of ctx
func ForContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := append(TraceFields(ctx), CorrelationFrom(ctx).Fields()...)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// L returns the logger stored in ctx annotated with the fields of ctx.
//
//	logger.L(ctx).Warn("payment rejected", zap.String("reason", reason))
func L(ctx context.Context) *zap.Logger {
	return ForContext(ctx, FromContext(ctx))
}
