// Package logging builds the loggers of the trade-workload command.
// Two backends are supported: log/slog with a JSON handler and zap. Both satisfy
// tradeorder.Logger and tradeorder.ContextualLogger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	BackendSlog = "slog"
	BackendZap  = "zap"

	EnvDev = "dev"

	fieldService = "service"
	fieldEnv     = "env"
	fieldTraceID = "trace_id"
	fieldSpanID  = "span_id"
)

// NewZap builds a zap logger. Environment "dev" selects the colored development encoder,
// everything else the JSON production encoder. An unparsable level keeps the encoder default.
func NewZap(service, env, level string) (*zap.Logger, error) {
	var cfg zap.Config

	if env == EnvDev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return logger.With(zap.String(fieldService, service), zap.String(fieldEnv, env)), nil
}

// NewSlog builds a JSON slog logger writing to w.
func NewSlog(service, env, level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})

	return slog.New(handler).With(fieldService, service, fieldEnv, env)
}

// ZapLogger adapts a zap logger to tradeorder.Logger and tradeorder.ContextualLogger.
// The context variants add the trace and span id of a span in the context.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

func (l *ZapLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Debugw(msg, withTrace(ctx, args)...)
}

func (l *ZapLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Infow(msg, withTrace(ctx, args)...)
}

func (l *ZapLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Warnw(msg, withTrace(ctx, args)...)
}

func (l *ZapLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Errorw(msg, withTrace(ctx, args)...)
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

func withTrace(ctx context.Context, args []any) []any {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return args
	}

	return append(args, fieldTraceID, spanCtx.TraceID().String(), fieldSpanID, spanCtx.SpanID().String())
}

var (
	_ tradeorder.Logger           = (*ZapLogger)(nil)
	_ tradeorder.ContextualLogger = (*ZapLogger)(nil)
)
