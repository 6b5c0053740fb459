package postgresengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	spanNameSubmit       = "tradeorder.submit"
	spanNameDrain        = "tradeorder.drain"
	spanAttrOperation    = "operation"
	spanAttrErrorType    = "error_type"
	spanAttrDurationMS   = "duration_ms"
	spanAttrOrderNbr     = "order_nbr"
	spanAttrSymbol       = "symbol"
	spanAttrProcessedCnt = "processed_count"
)

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (e Engine) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (e Engine) logOperation(ctx context.Context, message string, args ...any) {
	if e.logger != nil {
		e.logger.Info(message, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, message, args...)
	}
}

// logWarn logs non-critical issues at warn level.
func (e Engine) logWarn(ctx context.Context, message string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(message, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level.
func (e Engine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if e.logger != nil {
		e.logger.Error(message, allArgs...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDuration records a duration metric, using the context-aware method if available.
func (e Engine) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(tradeorder.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metric, duration, labels)
}

// incrementCounter increments a counter metric, using the context-aware method if available.
func (e Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(tradeorder.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metric, labels)
}

// recordValue records a value metric, using the context-aware method if available.
func (e Engine) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(tradeorder.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.metricsCollector.RecordValue(metric, value, labels)
}

// === Transaction Observer Pattern ===
// The observer bundles span lifecycle and metrics recording of one Submit or Drain call.

type transactionObserver struct {
	e              Engine
	ctx            context.Context
	span           tradeorder.SpanContext
	operation      string
	durationMetric string
	start          time.Time
}

// startObserving starts the span (if tracing is configured) and the clock for one transaction.
func (e Engine) startObserving(
	ctx context.Context,
	spanName, operation, durationMetric string,
) (*transactionObserver, context.Context) {

	var span tradeorder.SpanContext
	if e.tracingCollector != nil {
		ctx, span = e.tracingCollector.StartSpan(ctx, spanName, map[string]string{spanAttrOperation: operation})
	}

	return &transactionObserver{
		e:              e,
		ctx:            ctx,
		span:           span,
		operation:      operation,
		durationMetric: durationMetric,
		start:          time.Now(),
	}, ctx
}

func (o *transactionObserver) elapsed() time.Duration {
	return time.Since(o.start)
}

// finishSuccess records the duration metric and completes the span with the given attributes.
func (o *transactionObserver) finishSuccess(attrs map[string]string) time.Duration {
	duration := o.elapsed()

	o.e.recordDuration(o.ctx, o.durationMetric, duration, map[string]string{
		tradeorder.LabelOperation: o.operation,
		tradeorder.LabelStatus:    tradeorder.StatusSuccess,
	})

	if o.span != nil {
		o.span.SetStatus(tradeorder.StatusSuccess)
		o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))
		for key, value := range attrs {
			o.span.AddAttribute(key, value)
		}

		o.e.tracingCollector.FinishSpan(o.span, tradeorder.StatusSuccess, attrs)
	}

	return duration
}

// finishError records duration, error and conflict metrics and completes the span with the error type.
func (o *transactionObserver) finishError(err error) {
	duration := o.elapsed()
	errType := errorType(err)
	status := tradeorder.StatusError

	if errType == errorTypeConflict {
		status = tradeorder.StatusConflict
		o.e.incrementCounter(o.ctx, tradeorder.MetricTransactionConflicts, map[string]string{
			tradeorder.LabelOperation: o.operation,
		})
		o.e.logWarn(o.ctx, logMsgTransactionConflict, logAttrOperation, o.operation, logAttrError, err.Error())
	}

	o.e.recordDuration(o.ctx, o.durationMetric, duration, map[string]string{
		tradeorder.LabelOperation: o.operation,
		tradeorder.LabelStatus:    status,
	})

	o.e.incrementCounter(o.ctx, tradeorder.MetricDatabaseErrors, map[string]string{
		tradeorder.LabelOperation: o.operation,
		tradeorder.LabelStatus:    status,
		tradeorder.LabelErrorType: errType,
	})

	if o.span != nil {
		o.span.SetStatus(status)
		o.span.AddAttribute(spanAttrErrorType, errType)
		o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))
		o.e.tracingCollector.FinishSpan(o.span, status, map[string]string{spanAttrErrorType: errType})
	}
}
