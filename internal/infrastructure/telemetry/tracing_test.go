package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/backoffice/installments/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

type status string

func (s status) String() string { return string(s) }

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	obligationID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "installment", "register_payment",
		telemetry.ID(telemetry.AttrObligationID, obligationID),
		telemetry.Amount(telemetry.AttrPaymentTotal, decimal.RequireFromString("12.5")),
		telemetry.Label(telemetry.AttrStatus, status("PARTIAL")),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "installment.register_payment", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, obligationID.String(), attrs[telemetry.AttrObligationID].AsString())
	assert.Equal(t, "12.50", attrs[telemetry.AttrPaymentTotal].AsString())
	assert.Equal(t, "PARTIAL", attrs[telemetry.AttrStatus].AsString())
}

func TestEnd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sr := setupTestTracer(t)
		run := func() (err error) {
			_, span := telemetry.StartSpan(context.Background(), "summary")
			defer telemetry.End(span, &err)
			return nil
		}

		require.NoError(t, run())
		require.Len(t, sr.Ended(), 1)
		assert.Equal(t, codes.Ok, sr.Ended()[0].Status().Code)
	})

	t.Run("failure", func(t *testing.T) {
		sr := setupTestTracer(t)
		run := func() (err error) {
			_, span := telemetry.StartSpan(context.Background(), "delete_payment")
			defer telemetry.End(span, &err)
			return errors.New("payment not found")
		}

		require.Error(t, run())
		ended := sr.Ended()[0]
		assert.Equal(t, codes.Error, ended.Status().Code)
		assert.Equal(t, "payment not found", ended.Status().Description)
		require.Len(t, ended.Events(), 1)
		assert.Equal(t, "exception", ended.Events()[0].Name)
	})
}

func TestAnnotateAndEvent(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "validate_payment")
	telemetry.Annotate(ctx, telemetry.AttrObligationCount.Int(3))
	telemetry.Event(ctx, "payment_validated", telemetry.Amount(telemetry.AttrPendingAmount, decimal.NewFromInt(40)))
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, int64(3), attrMap(ended.Attributes())[telemetry.AttrObligationCount].AsInt64())
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "payment_validated", ended.Events()[0].Name)
	assert.Equal(t, "40.00", attrMap(ended.Events()[0].Attributes)[telemetry.AttrPendingAmount].AsString())
}

func TestNestedSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "installment", "register_payment")
	_, child := telemetry.StartSpan(ctx, "store.create_payment")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, parent.SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()

	assert.NotPanics(t, func() {
		telemetry.Annotate(ctx, telemetry.AttrCurrencyCount.Int(1))
		telemetry.Event(ctx, "ignored")
		telemetry.RecordError(nil, errors.New("x"))
	})
}
