package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const attrStatus = "status"

// TracingCollector implements tradeorder.TracingCollector with OpenTelemetry spans.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a tracing collector starting its spans on tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span as a child of any span in ctx and returns the context carrying the new span.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, tradeorder.SpanContext) {

	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan sets the final attributes and status and ends the span.
// Spans not started by a TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx tradeorder.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ tradeorder.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements tradeorder.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps the workload status values to span status codes.
// Unknown values are kept as a status attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case tradeorder.StatusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case tradeorder.StatusConflict:
		s.span.SetStatus(codes.Error, "transaction conflict")
	case tradeorder.StatusError, tradeorder.StatusFailure:
		s.span.SetStatus(codes.Error, "operation failed")
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ tradeorder.SpanContext = (*OTelSpanContext)(nil)
