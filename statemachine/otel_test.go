package statemachine

import (
	"context"
	"testing"

	"github.com/rainbowassets/gamefsm/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer creates a test tracer with an in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)

	oldProvider := otel.GetTracerProvider()

	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	return exporter
}

func spanAttributes(span tracetest.SpanStub) map[string]any {
	attrMap := make(map[string]any)
	for _, attr := range span.Attributes {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	return attrMap
}

func newSpanTestController(t *testing.T) *Controller {
	t.Helper()

	graph, err := NewBuilder("traced").
		State("idle", "Idle").
		State("alert", "Alert").
		Entry("idle").
		Transition("idle", "alert", Always()).
		Build()
	require.NoError(t, err)

	ctrl, err := NewController(graph,
		WithLogger(NopLogger{}),
		WithAgentID("guard-7"),
		WithTransitionPolicy(FirstMatch))
	require.NoError(t, err)

	return ctrl
}

// TestControllerSpans verifies the spans emitted by Start and Tick.
// Note: Cannot use t.Parallel() because setupTestTracer modifies global OTEL tracer provider.
//
//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestControllerSpans(t *testing.T) {
	exporter := setupTestTracer(t)
	ctrl := newSpanTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "fsm.switch", spans[0].Name)
	assert.Equal(t, "fsm.start", spans[1].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID(), "switch is a child of start")

	attrs := spanAttributes(spans[0])
	assert.Equal(t, "traced", attrs["graph"])
	assert.Equal(t, "guard-7", attrs["agent_id"])
	assert.Equal(t, "entry", attrs["from"])
	assert.Equal(t, "idle", attrs["to"])
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	exporter.Reset()

	require.NoError(t, ctrl.Tick(ctx))

	spans = exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "fsm.switch", spans[0].Name)
	assert.Equal(t, "fsm.tick", spans[1].Name)
	assert.Equal(t, "idle", spanAttributes(spans[1])["state"])
	assert.Equal(t, "alert", spanAttributes(spans[0])["to"])
}

// TestSpanErrorRecording verifies that errors mark spans.
// Note: Cannot use t.Parallel() because setupTestTracer modifies global OTEL tracer provider.
//
//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestSpanErrorRecording(t *testing.T) {
	exporter := setupTestTracer(t)
	ctrl := newSpanTestController(t)

	ctx := envutil.WithEnvOverride(context.Background(), "FSM_DEBUG_SPANS", "true")

	_, span := startSpan(ctx, "fsm.test", ctrl)
	endSpan(span, ErrInvalidTarget)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, ErrInvalidTarget.Error(), spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}
