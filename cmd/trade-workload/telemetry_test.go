package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdtrade/trade-workload-go/internal/logging"
	"github.com/birdtrade/trade-workload-go/testutil/postgresengine/helper"
	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/promadapters"
)

func Test_TeeMetricsCollector_ForwardsToAllCollectors(t *testing.T) {
	// arrange
	first := helper.NewMetricsCollectorSpy(true)
	second := helper.NewMetricsCollectorSpy(true)
	tee := teeMetricsCollector{first, second}
	labels := map[string]string{tradeorder.LabelStatus: tradeorder.StatusSuccess}

	// act
	tee.RecordDuration(tradeorder.MetricSubmitDuration, 5*time.Millisecond, labels)
	tee.IncrementCounter(tradeorder.MetricOrdersSubmitted, labels)
	tee.RecordValue(tradeorder.MetricOrdersProcessed, 3, labels)

	// assert
	for _, spy := range []*helper.MetricsCollectorSpy{first, second} {
		assert.Len(t, spy.GetDurationRecords(), 1)
		assert.Len(t, spy.GetCounterRecords(), 1)
		assert.Len(t, spy.GetValueRecords(), 1)
		assert.True(t, spy.HasValueRecordForMetric(tradeorder.MetricOrdersProcessed).WithStatus(tradeorder.StatusSuccess).Assert())
	}
}

func Test_NewTelemetry_When_OnlyLogging_Then_EnginesGetThePlainLogger(t *testing.T) {
	// act
	tel, err := newTelemetry(context.Background(), Config{LogBackend: logging.BackendSlog, LogLevel: "error"})

	// assert
	require.NoError(t, err)
	assert.Nil(t, tel.metricsCollector)
	assert.Nil(t, tel.tracingCollector)
	assert.Nil(t, tel.contextualLogger)
	assert.Len(t, tel.engineOptions(), 1)
	assert.Len(t, tel.managerOptions(), 1)
	assert.NoError(t, tel.shutdown())
}

func Test_NewTelemetry_When_MetricsAddrIsSet_Then_PrometheusCollectorIsWired(t *testing.T) {
	// act
	tel, err := newTelemetry(context.Background(), Config{
		LogBackend:  logging.BackendZap,
		LogLevel:    "error",
		Env:         "test",
		MetricsAddr: "127.0.0.1:0",
	})

	// assert
	require.NoError(t, err)
	assert.IsType(t, &promadapters.MetricsCollector{}, tel.metricsCollector)
	assert.Len(t, tel.engineOptions(), 2)
	assert.Len(t, tel.managerOptions(), 2)
	assert.NoError(t, tel.shutdown())
}
