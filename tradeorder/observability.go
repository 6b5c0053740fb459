package tradeorder

import (
	"context"
	"time"
)

// Logger interface for SQL query logging, connection attempts, warnings, and error reporting.
// It is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// It is satisfied by *slog.Logger and by the OpenTelemetry slog bridge.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting workload performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods for trace correlation.
// Components use the context-aware methods when the configured collector implements them.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from workload transactions.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// Metric names and label values shared by all components and adapters.
const (
	MetricConnectionAttempts   = "tradeorder_connection_attempts_total"
	MetricSubmitDuration       = "tradeorder_submit_duration_seconds"
	MetricDrainDuration        = "tradeorder_drain_duration_seconds"
	MetricOrdersSubmitted      = "tradeorder_orders_submitted_total"
	MetricOrdersProcessed      = "tradeorder_orders_processed"
	MetricTransactionConflicts = "tradeorder_transaction_conflicts_total"
	MetricDatabaseErrors       = "tradeorder_database_errors_total"

	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelErrorType = "error_type"

	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusError    = "error"
	StatusConflict = "conflict"

	OperationSubmit  = "submit"
	OperationDrain   = "drain"
	OperationConnect = "connect"
)
