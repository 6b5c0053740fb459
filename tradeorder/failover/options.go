package failover

import (
	"time"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = 5 * time.Second
)

type settings struct {
	maxRetries       int
	retryDelay       time.Duration
	randomizer       tradeorder.Randomizer
	logger           tradeorder.Logger
	contextualLogger tradeorder.ContextualLogger
	metricsCollector tradeorder.MetricsCollector
}

// Option defines a functional option for configuring a Manager.
type Option func(*settings) error

// WithMaxRetries sets the number of full passes over all endpoints before giving up.
func WithMaxRetries(maxRetries int) Option {
	return func(s *settings) error {
		if maxRetries < 1 {
			return tradeorder.ErrInvalidMaxRetries
		}

		s.maxRetries = maxRetries

		return nil
	}
}

// WithRetryDelay sets the pause between two failed passes.
func WithRetryDelay(delay time.Duration) Option {
	return func(s *settings) error {
		if delay < 0 {
			return tradeorder.ErrNegativeRetryDelay
		}

		s.retryDelay = delay

		return nil
	}
}

// WithRandomizer sets the source of the per-pass endpoint permutation.
func WithRandomizer(randomizer tradeorder.Randomizer) Option {
	return func(s *settings) error {
		if randomizer == nil {
			return tradeorder.ErrNilRandomizer
		}

		s.randomizer = randomizer

		return nil
	}
}

// WithLogger sets the logger for the Manager.
//
// Info level: established connections
// Warn level: failed attempts and failed passes
// Error level: exhaustion of all passes.
func WithLogger(logger tradeorder.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for the Manager.
func WithContextualLogger(logger tradeorder.ContextualLogger) Option {
	return func(s *settings) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector that receives one connection attempt counter per dial.
func WithMetrics(collector tradeorder.MetricsCollector) Option {
	return func(s *settings) error {
		s.metricsCollector = collector
		return nil
	}
}
