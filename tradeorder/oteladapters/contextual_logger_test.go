package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/birdtrade/trade-workload-go/tradeorder/oteladapters"
)

func Test_SlogBridgeLogger_AllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "executed sql for: insert order", "duration_ms", 1.25)
	logger.InfoContext(ctx, "order submitted", "symbol", "AAPL")
	logger.WarnContext(ctx, "transaction conflict detected", "operation", "drain")
	logger.ErrorContext(ctx, "failed to commit transaction", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG"`)
	assert.Contains(t, output, `"level":"INFO"`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"level":"ERROR"`)
	assert.Contains(t, output, `"duration_ms":1.25`)
	assert.Contains(t, output, `"symbol":"AAPL"`)
}

func Test_NewSlogBridgeLogger_Construction(t *testing.T) {
	assert.NotNil(t, oteladapters.NewSlogBridgeLogger("test"))
}

func Test_OTelLogger_Handles_All_Argument_Shapes(t *testing.T) {
	// arrange
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))
	ctx := context.Background()

	// act & assert
	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug message", "duration_ms", 0.5)
		logger.InfoContext(ctx, "order processed", "order_nbr", "ABC", "quantity", 7, "ok", true)
		logger.WarnContext(ctx, "odd args", "key_without_value")
		logger.ErrorContext(ctx, "non string key", 42, "value")
	})
}
