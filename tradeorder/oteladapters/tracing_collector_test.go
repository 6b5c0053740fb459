package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/oteladapters"
)

func givenTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func Test_TracingCollector_Records_Start_And_Finish_Attributes(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "tradeorder.submit", map[string]string{
		tradeorder.LabelOperation: tradeorder.OperationSubmit,
	})
	spanCtx.AddAttribute("symbol", "AAPL")
	collector.FinishSpan(spanCtx, tradeorder.StatusSuccess, map[string]string{"order_nbr": "ABCDEFGHIJKLMN"})

	// assert
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid(), "context should carry the span")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")
	assert.Equal(t, "tradeorder.submit", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], tradeorder.LabelOperation, tradeorder.OperationSubmit)
	assertSpanHasAttribute(t, spans[0], "symbol", "AAPL")
	assertSpanHasAttribute(t, spans[0], "order_nbr", "ABCDEFGHIJKLMN")
}

func Test_TracingCollector_Maps_Statuses(t *testing.T) {
	tests := []struct {
		status       string
		expectedCode codes.Code
	}{
		{status: tradeorder.StatusSuccess, expectedCode: codes.Ok},
		{status: tradeorder.StatusConflict, expectedCode: codes.Error},
		{status: tradeorder.StatusError, expectedCode: codes.Error},
		{status: tradeorder.StatusFailure, expectedCode: codes.Error},
		{status: "partial", expectedCode: codes.Unset},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			// arrange
			collector, exporter := givenTracingCollector()

			// act
			_, spanCtx := collector.StartSpan(context.Background(), "tradeorder.drain", nil)
			collector.FinishSpan(spanCtx, tt.status, nil)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.expectedCode, spans[0].Status.Code)
		})
	}
}

func Test_TracingCollector_Keeps_Unknown_Status_As_Attribute(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "tradeorder.drain", nil)
	collector.FinishSpan(spanCtx, "partial", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "status", "partial")
}

func Test_TracingCollector_Nests_Spans_Under_The_Caller_Span(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	parentCtx, parent := collector.StartSpan(context.Background(), "worker.iteration", nil)
	_, child := collector.StartSpan(parentCtx, "tradeorder.submit", nil)
	collector.FinishSpan(child, tradeorder.StatusSuccess, nil)
	collector.FinishSpan(parent, tradeorder.StatusSuccess, nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "tradeorder.submit", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, expectedValue, attr.Value.AsString(), "attribute %s", key)
			return
		}
	}

	t.Errorf("attribute %s not found on span %s", key, span.Name)
}
