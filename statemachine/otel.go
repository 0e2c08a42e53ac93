package statemachine

import (
	"context"
	"log/slog"

	"github.com/rainbowassets/gamefsm/envutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startSpan starts a controller span carrying graph and agent attributes.
// Uses the global tracer provider set up by the telemetry package.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startSpan(ctx context.Context, name string, c *Controller, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(
		attribute.String("graph", c.graph.Name),
		attribute.String("agent_id", c.agentID),
	)
	span.SetAttributes(attrs...)
	logSpanDebug(ctx, "started", name, span)

	return ctx, span
}

// endSpan records the outcome and ends the span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// logSpanDebug logs span creation when FSM_DEBUG_SPANS is set.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !envutil.Bool(ctx, "FSM_DEBUG_SPANS").ValueOrElse(false) {
		return
	}

	spanCtx := span.SpanContext()
	slog.DebugContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}
