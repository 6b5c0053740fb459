package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/oteladapters"
)

func givenCollectorWithReader() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "Failed to collect metrics")

	return resourceMetrics
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	collector, reader := givenCollectorWithReader()

	// act
	collector.RecordDuration(tradeorder.MetricSubmitDuration, 150*time.Millisecond, map[string]string{
		tradeorder.LabelOperation: tradeorder.OperationSubmit,
		tradeorder.LabelStatus:    tradeorder.StatusSuccess,
	})

	// assert
	histogram := findHistogramMetric(t, collect(t, reader), tradeorder.MetricSubmitDuration)
	require.Len(t, histogram.DataPoints, 1, "Expected exactly one data point")

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001, "Histogram sum should be 0.15 seconds")

	expectedAttrs := attribute.NewSet(
		attribute.String(tradeorder.LabelOperation, tradeorder.OperationSubmit),
		attribute.String(tradeorder.LabelStatus, tradeorder.StatusSuccess),
	)
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs), "Attributes should match")
}

func Test_MetricsCollector_IncrementCounter_Separates_Label_Sets(t *testing.T) {
	// arrange
	collector, reader := givenCollectorWithReader()
	ctx := context.Background()
	conflict := map[string]string{tradeorder.LabelOperation: tradeorder.OperationDrain}
	submitConflict := map[string]string{tradeorder.LabelOperation: tradeorder.OperationSubmit}

	// act
	collector.IncrementCounterContext(ctx, tradeorder.MetricTransactionConflicts, conflict)
	collector.IncrementCounterContext(ctx, tradeorder.MetricTransactionConflicts, conflict)
	collector.IncrementCounter(tradeorder.MetricTransactionConflicts, submitConflict)

	// assert
	counter := findCounterMetric(t, collect(t, reader), tradeorder.MetricTransactionConflicts)
	require.Len(t, counter.DataPoints, 2)
	assert.True(t, counter.IsMonotonic)

	values := make(map[string]int64)
	for _, dataPoint := range counter.DataPoints {
		operation, _ := dataPoint.Attributes.Value(attribute.Key(tradeorder.LabelOperation))
		values[operation.AsString()] = dataPoint.Value
	}

	assert.Equal(t, int64(2), values[tradeorder.OperationDrain])
	assert.Equal(t, int64(1), values[tradeorder.OperationSubmit])
}

func Test_MetricsCollector_RecordValue_Keeps_The_Last_Value(t *testing.T) {
	// arrange
	collector, reader := givenCollectorWithReader()

	// act
	collector.RecordValue(tradeorder.MetricOrdersProcessed, 7, nil)
	collector.RecordValueContext(context.Background(), tradeorder.MetricOrdersProcessed, 3, nil)

	// assert
	gauge := findGaugeMetric(t, collect(t, reader), tradeorder.MetricOrdersProcessed)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 3.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_Is_Safe_For_Concurrent_Workers(t *testing.T) {
	// arrange
	collector, reader := givenCollectorWithReader()
	const workers = 16
	const increments = 50

	// act
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range increments {
				collector.IncrementCounter(tradeorder.MetricOrdersSubmitted, map[string]string{
					tradeorder.LabelStatus: tradeorder.StatusSuccess,
				})
			}
		}()
	}
	wg.Wait()

	// assert
	counter := findCounterMetric(t, collect(t, reader), tradeorder.MetricOrdersSubmitted)
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(workers*increments), counter.DataPoints[0].Value)
}

func findHistogramMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Histogram[float64] {
	t.Helper()
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, metric := range scopeMetrics.Metrics {
			if metric.Name == name {
				if h, ok := metric.Data.(metricdata.Histogram[float64]); ok {
					return &h
				}
			}
		}
	}
	t.Fatalf("Histogram metric %s not found", name)
	return nil
}

func findCounterMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Sum[int64] {
	t.Helper()
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, metric := range scopeMetrics.Metrics {
			if metric.Name == name {
				if c, ok := metric.Data.(metricdata.Sum[int64]); ok {
					return &c
				}
			}
		}
	}
	t.Fatalf("Counter metric %s not found", name)
	return nil
}

func findGaugeMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Gauge[float64] {
	t.Helper()
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, metric := range scopeMetrics.Metrics {
			if metric.Name == name {
				if g, ok := metric.Data.(metricdata.Gauge[float64]); ok {
					return &g
				}
			}
		}
	}
	t.Fatalf("Gauge metric %s not found", name)
	return nil
}
