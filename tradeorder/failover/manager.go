package failover

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/avast/retry-go"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	logMsgConnected      = "connection established"
	logMsgAttemptFailed  = "connection attempt failed"
	logMsgPassFailed     = "connection pass failed on all endpoints"
	logMsgExhausted      = "giving up, no endpoint accepted a connection"
	logAttrEndpoint      = "endpoint"
	logAttrPass          = "pass"
	logAttrMaxRetries    = "max_retries"
	logAttrEndpointCount = "endpoint_count"
	logAttrDurationMS    = "duration_ms"
	logAttrError         = "error"
	metricLabelEndpoint  = "endpoint"
	passErrFormat        = "pass %d: %w"
	endpointErrFormat    = "endpoint %s: %w"
)

// Dialer opens and verifies a connection to one endpoint.
// It must give up after endpoint.ConnectTimeout() and must not leak a half-open handle on failure.
type Dialer[C any] interface {
	Dial(ctx context.Context, endpoint tradeorder.Endpoint) (C, error)
}

// DialerFunc adapts a plain function to the Dialer interface.
type DialerFunc[C any] func(ctx context.Context, endpoint tradeorder.Endpoint) (C, error)

// Dial calls f.
func (f DialerFunc[C]) Dial(ctx context.Context, endpoint tradeorder.Endpoint) (C, error) {
	return f(ctx, endpoint)
}

// Manager acquires connections of type C with randomized multi-endpoint failover.
type Manager[C any] struct {
	pool   tradeorder.EndpointPool
	dialer Dialer[C]
	settings
}

// NewManager creates a Manager for the pool. Defaults: 5 passes, 5s between passes, time-seeded randomizer.
func NewManager[C any](pool tradeorder.EndpointPool, dialer Dialer[C], options ...Option) (*Manager[C], error) {
	if pool.Len() == 0 {
		return nil, tradeorder.ErrEmptyEndpoints
	}

	if dialer == nil {
		return nil, tradeorder.ErrNilDialer
	}

	s := settings{
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}

	for _, option := range options {
		if err := option(&s); err != nil {
			return nil, err
		}
	}

	if s.randomizer == nil {
		s.randomizer = tradeorder.NewTimeSeededRandomizer()
	}

	return &Manager[C]{
		pool:     pool,
		dialer:   dialer,
		settings: s,
	}, nil
}

// Acquire returns the first connection any endpoint accepts.
// When every pass failed it returns the zero value of C and an error matching tradeorder.ErrConnectionExhausted.
// When ctx is done it stops and returns ctx.Err().
func (m *Manager[C]) Acquire(ctx context.Context) (C, error) {
	var conn C
	var empty C
	pass := 0

	err := retry.Do(
		func() error {
			pass++

			acquired, passErr := m.tryPass(ctx, pass)
			if passErr != nil {
				return passErr
			}

			conn = acquired

			return nil
		},
		retry.Attempts(uint(m.maxRetries)),
		retry.Delay(m.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(_ uint, _ error) {
			m.logWarn(ctx, logMsgPassFailed, logAttrPass, pass, logAttrEndpointCount, m.pool.Len())
		}),
	)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return empty, ctxErr
		}

		m.logError(ctx, logMsgExhausted, err, logAttrMaxRetries, m.maxRetries)

		return empty, errors.Join(tradeorder.ErrConnectionExhausted, err)
	}

	return conn, nil
}

// tryPass visits every endpoint once in a fresh random order.
func (m *Manager[C]) tryPass(ctx context.Context, pass int) (C, error) {
	var empty C
	var failures []error

	for _, idx := range m.randomizer.Perm(m.pool.Len()) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return empty, retry.Unrecoverable(ctxErr)
		}

		endpoint := m.pool.At(idx)

		start := time.Now()
		conn, dialErr := m.dialer.Dial(ctx, endpoint)
		duration := time.Since(start)

		if dialErr != nil {
			dialErr = endpoint.RedactError(dialErr)
			m.recordAttempt(ctx, endpoint, tradeorder.StatusFailure)
			m.logWarn(
				ctx,
				logMsgAttemptFailed,
				logAttrEndpoint, endpoint.Redacted(),
				logAttrPass, pass,
				logAttrDurationMS, toMilliseconds(duration),
				logAttrError, dialErr.Error(),
			)

			failures = append(failures, errors.Join(
				tradeorder.ErrConnectionFailure,
				fmt.Errorf(endpointErrFormat, endpoint.Redacted(), dialErr),
			))

			continue
		}

		m.recordAttempt(ctx, endpoint, tradeorder.StatusSuccess)
		m.logInfo(
			ctx,
			logMsgConnected,
			logAttrEndpoint, endpoint.Redacted(),
			logAttrPass, pass,
			logAttrDurationMS, toMilliseconds(duration),
		)

		return conn, nil
	}

	return empty, fmt.Errorf(passErrFormat, pass, errors.Join(failures...))
}

func (m *Manager[C]) recordAttempt(ctx context.Context, endpoint tradeorder.Endpoint, status string) {
	if m.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		tradeorder.LabelStatus: status,
		metricLabelEndpoint:    endpoint.Redacted(),
	}

	if contextualCollector, ok := m.metricsCollector.(tradeorder.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, tradeorder.MetricConnectionAttempts, labels)
		return
	}

	m.metricsCollector.IncrementCounter(tradeorder.MetricConnectionAttempts, labels)
}

func (m *Manager[C]) logInfo(ctx context.Context, msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}

	if m.contextualLogger != nil {
		m.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

func (m *Manager[C]) logWarn(ctx context.Context, msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}

	if m.contextualLogger != nil {
		m.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

func (m *Manager[C]) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if m.logger != nil {
		m.logger.Error(msg, allArgs...)
	}

	if m.contextualLogger != nil {
		m.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
