package outbox

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/merchkit/orderflow/pkg/tracing"
)

func headerMap(t *testing.T, p *fakeProducer) map[string]string {
	t.Helper()
	require.Len(t, p.messages, 1)
	out := map[string]string{}
	for _, h := range p.messages[0].Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestDispatchUsesStoredTraceparent(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(slog.New(slog.DiscardHandler), producer, "order.events")

	err := d.Dispatch(context.Background(), Event{
		ID: 1, AggregateID: "ord-1", Type: "OrderCreated", Traceparent: "00-abc-def-01",
	})
	require.NoError(t, err)
	require.Equal(t, "00-abc-def-01", headerMap(t, producer)[tracing.TraceparentHeader])
}

func TestDispatchFallsBackToLiveContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	producer := &fakeProducer{}
	d := NewDispatcher(slog.New(slog.DiscardHandler), producer, "order.events")

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	require.NoError(t, d.Dispatch(ctx, Event{ID: 2, AggregateID: "ord-2", Type: "OrderPaid"}))
	require.Contains(t, headerMap(t, producer)[tracing.TraceparentHeader], traceID.String(),
		"events without a stored traceparent inherit the publisher's context")
}
