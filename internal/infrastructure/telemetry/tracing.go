package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of business spans
const TracerName = "installments"

// Span attribute keys of obligation and payment operations. Currency and
// status spans share AttrCurrency and AttrStatus with the metrics.
const (
	AttrObligationID    = attribute.Key("obligation.id")
	AttrDocumentID      = attribute.Key("obligation.document_id")
	AttrPendingAmount   = attribute.Key("obligation.pending")
	AttrPaymentID       = attribute.Key("payment.id")
	AttrPaymentTotal    = attribute.Key("payment.total")
	AttrObligationCount = attribute.Key("summary.obligations")
	AttrCurrencyCount   = attribute.Key("summary.currencies")
)

// StartSpan starts an internal span on the global tracer provider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartServiceSpan starts a span named "service.method", e.g. installment.register_payment
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, attrs...)
}

// End ends span with a status taken from the error errp points at. Deferred
// from functions with a named error result:
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "delete_payment")
//	defer telemetry.End(span, &err)
func End(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		RecordError(span, *errp)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordError records err on span and marks the span failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Annotate adds attributes to the span in ctx
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// Event adds a named event to the span in ctx
func Event(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// ID builds a UUID attribute
func ID(key attribute.Key, id uuid.UUID) attribute.KeyValue {
	return key.String(id.String())
}

// Amount builds a money attribute with two decimals, the precision amounts are stored with
func Amount(key attribute.Key, d decimal.Decimal) attribute.KeyValue {
	return key.String(d.StringFixed(2))
}

// Label builds an attribute from an enum-like value such as a status or currency
func Label(key attribute.Key, v fmt.Stringer) attribute.KeyValue {
	return key.String(v.String())
}
