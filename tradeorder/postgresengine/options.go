package postgresengine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: submitted and processed orders, drain counts (production-safe)
// Warn level: non-critical issues like rollback failures
// Error level: failures that abort a transaction.
func WithLogger(logger tradeorder.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger tradeorder.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// It receives transaction durations, submitted and processed order counts, conflicts and database errors.
func WithMetrics(collector tradeorder.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine. Every Submit and Drain runs in its own span.
func WithTracing(collector tradeorder.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}

// WithRandomizer sets the source used to pick instruments and accounts and to synthesize orders.
func WithRandomizer(randomizer tradeorder.Randomizer) Option {
	return func(e *Engine) error {
		if randomizer == nil {
			return tradeorder.ErrNilRandomizer
		}

		e.randomizer = randomizer

		return nil
	}
}

// WithClock sets the clock supplying entry, execution and trade timestamps.
func WithClock(clock tradeorder.Clock) Option {
	return func(e *Engine) error {
		if clock == nil {
			return tradeorder.ErrNilClock
		}

		e.clock = clock

		return nil
	}
}

// WithProcessingDelay sets the pause before Drain claims pending orders. Zero disables it.
func WithProcessingDelay(delay time.Duration) Option {
	return func(e *Engine) error {
		if delay < 0 {
			return tradeorder.ErrNegativeDelay
		}

		e.processingDelay = delay

		return nil
	}
}

// WithPriceTick sets the amount a submitted order moves its instrument's price.
func WithPriceTick(tick decimal.Decimal) Option {
	return func(e *Engine) error {
		if !tick.IsPositive() {
			return tradeorder.ErrInvalidPriceTick
		}

		e.priceTick = tick

		return nil
	}
}

// WithDrainBatchLimit caps how many pending orders one Drain claims. Zero means no limit.
func WithDrainBatchLimit(limit int) Option {
	return func(e *Engine) error {
		if limit < 0 {
			return tradeorder.ErrNegativeBatchLimit
		}

		e.drainBatchLimit = uint(limit)

		return nil
	}
}
