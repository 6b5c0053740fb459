package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/birdtrade/trade-workload-go/internal/logging"
)

func givenObservedZapLogger() (*logging.ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewZapLogger(zap.New(core)), logs
}

func Test_ZapLogger_Maps_Levels_And_Fields(t *testing.T) {
	// arrange
	logger, logs := givenObservedZapLogger()

	// act
	logger.Debug("executed sql for: insert order", "duration_ms", 1.5)
	logger.Info("order submitted", "symbol", "AAPL", "quantity", 10)
	logger.Warn("connection attempt failed", "endpoint", "haproxy-eu-west-1:26256/trade_db")
	logger.Error("failed to commit transaction", "error", "boom")

	// assert
	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "AAPL", entries[1].ContextMap()["symbol"])
	assert.Equal(t, int64(10), entries[1].ContextMap()["quantity"])
}

func Test_ZapLogger_Context_Variants_Add_Trace_Ids(t *testing.T) {
	// arrange
	logger, logs := givenObservedZapLogger()
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	// act
	logger.InfoContext(ctx, "order processed", "order_nbr", "ABCDEFGHIJKLMN")
	logger.WarnContext(context.Background(), "transaction conflict detected")

	// assert
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0].ContextMap()["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entries[0].ContextMap()["span_id"])
	assert.Equal(t, "ABCDEFGHIJKLMN", entries[0].ContextMap()["order_nbr"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}

func Test_NewZap_Builds_For_Every_Environment(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		t.Run(env, func(t *testing.T) {
			logger, err := logging.NewZap("trade-workload", env, "debug")

			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func Test_NewSlog_Filters_By_Level(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := logging.NewSlog("trade-workload", "prod", "warn", &buf)

	// act
	logger.Info("order submitted")
	logger.Warn("connection attempt failed")

	// assert
	output := buf.String()
	assert.NotContains(t, output, "order submitted")
	assert.Contains(t, output, "connection attempt failed")
	assert.Contains(t, output, `"service":"trade-workload"`)
}

func Test_NewSlog_Falls_Back_To_Info_For_Unknown_Level(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := logging.NewSlog("trade-workload", "prod", "chatty", &buf)

	// act
	logger.Debug("hidden")
	logger.Info("shown")

	// assert
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
