package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/birdtrade/trade-workload-go/internal/logging"
	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	envPrefix = "TRADE_WORKLOAD"

	keyEndpoints            = "endpoints"
	keyMaxRetries           = "max-retries"
	keyRetryDelay           = "retry-delay"
	keyConnectTimeout       = "connect-timeout"
	keyDriver               = "driver"
	keySeed                 = "seed"
	keyLogBackend           = "log-backend"
	keyLogLevel             = "log-level"
	keyEnv                  = "env"
	keyWorkers              = "workers"
	keyReadPct              = "read-pct"
	keyProcessingDelay      = "processing-delay"
	keyPriceTick            = "price-tick"
	keyDrainBatchLimit      = "drain-batch-limit"
	keyRate                 = "rate"
	keyDuration             = "duration"
	keyMetricsAddr          = "metrics-addr"
	keyObservabilityEnabled = "observability-enabled"
	keyOTLPEndpoint         = "otlp-endpoint"
	keySummaryJSON          = "summary-json"
	keyAccounts             = "accounts"
	keySeedMarket           = "seed-market"

	driverPGX  = "pgx"
	driverSQL  = "sql"
	driverSQLX = "sqlx"
	driverGORM = "gorm"

	defaultMaxRetries      = 5
	defaultRetryDelay      = 5 * time.Second
	defaultWorkers         = 4
	defaultReadPct         = 50
	defaultProcessingDelay = 500 * time.Millisecond
	defaultPriceTick       = "0.10"
	defaultLogLevel        = "info"
	defaultEnv             = "prod"
	defaultOTLPEndpoint    = "localhost:4317"
	defaultAccounts        = 1000
)

var (
	errInvalidConfig = errors.New("invalid configuration")

	supportedDrivers     = []string{driverPGX, driverSQL, driverSQLX, driverGORM}
	supportedLogBackends = []string{logging.BackendSlog, logging.BackendZap}
)

// Config is the resolved configuration of one command invocation.
// Precedence: changed flag, then TRADE_WORKLOAD_* environment (including .env), then flag default.
type Config struct {
	Endpoints            []string
	MaxRetries           int
	RetryDelay           time.Duration
	ConnectTimeout       time.Duration
	Driver               string
	Seed                 uint64
	LogBackend           string
	LogLevel             string
	Env                  string
	Workers              int
	ReadPct              int
	ProcessingDelay      time.Duration
	PriceTick            decimal.Decimal
	DrainBatchLimit      int
	Rate                 float64
	Duration             time.Duration
	MetricsAddr          string
	ObservabilityEnabled bool
	OTLPEndpoint         string
	SummaryJSON          string
	Accounts             int
	SeedMarket           bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyEndpoints, tradeorder.DefaultEndpointURIs())
	v.SetDefault(keyMaxRetries, defaultMaxRetries)
	v.SetDefault(keyRetryDelay, defaultRetryDelay)
	v.SetDefault(keyConnectTimeout, tradeorder.DefaultConnectTimeout)
	v.SetDefault(keyDriver, driverPGX)
	v.SetDefault(keyLogBackend, logging.BackendSlog)
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyEnv, defaultEnv)
	v.SetDefault(keyWorkers, defaultWorkers)
	v.SetDefault(keyReadPct, defaultReadPct)
	v.SetDefault(keyProcessingDelay, defaultProcessingDelay)
	v.SetDefault(keyPriceTick, defaultPriceTick)
	v.SetDefault(keyOTLPEndpoint, defaultOTLPEndpoint)
	v.SetDefault(keyAccounts, defaultAccounts)
	v.SetDefault(keySeedMarket, true)

	return v
}

// addConnectionFlags registers the flags shared by every command that talks to the database.
func addConnectionFlags(fs *pflag.FlagSet) {
	fs.StringSlice(keyEndpoints, tradeorder.DefaultEndpointURIs(), "comma separated postgres:// endpoint URIs")
	fs.Int(keyMaxRetries, defaultMaxRetries, "connection passes over all endpoints before giving up")
	fs.Duration(keyRetryDelay, defaultRetryDelay, "pause between two connection passes")
	fs.Duration(keyConnectTimeout, tradeorder.DefaultConnectTimeout, "timeout of a single connection attempt")
	fs.String(keyDriver, driverPGX, "database driver: pgx, sql, sqlx or gorm")
	fs.Uint64(keySeed, 0, "random seed, 0 seeds from the clock")
	fs.String(keyLogBackend, logging.BackendSlog, "log backend: slog or zap")
	fs.String(keyLogLevel, defaultLogLevel, "log level: debug, info, warn or error")
	fs.String(keyEnv, defaultEnv, "environment name, dev enables human readable zap output")
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.Int(keyWorkers, defaultWorkers, "number of concurrent workers")
	fs.Int(keyReadPct, defaultReadPct, "share of read operations in percent, reserved")
	fs.Duration(keyProcessingDelay, defaultProcessingDelay, "pause before each drain")
	fs.String(keyPriceTick, defaultPriceTick, "price movement per order")
	fs.Int(keyDrainBatchLimit, 0, "maximum orders claimed per drain, 0 is unlimited")
	fs.Float64(keyRate, 0, "submit/drain iterations per second and worker, 0 runs back-to-back")
	fs.Duration(keyDuration, 0, "run duration, 0 runs until interrupted")
	fs.String(keyMetricsAddr, "", "listen address of the Prometheus /metrics endpoint, empty disables it")
	fs.Bool(keyObservabilityEnabled, false, "export traces and metrics over OTLP")
	fs.String(keyOTLPEndpoint, defaultOTLPEndpoint, "OTLP gRPC collector endpoint")
	fs.String(keySummaryJSON, "", "write the run summary as JSON to this path")
}

func addInitSchemaFlags(fs *pflag.FlagSet) {
	fs.Int(keyAccounts, defaultAccounts, "number of accounts to seed")
	fs.Bool(keySeedMarket, true, "seed the default instruments and accounts")
}

// loadConfig resolves and validates a Config from v.
func loadConfig(v *viper.Viper) (Config, error) {
	priceTick, err := decimal.NewFromString(v.GetString(keyPriceTick))
	if err != nil {
		return Config{}, errors.Join(errInvalidConfig, fmt.Errorf("%s: %w", keyPriceTick, err))
	}

	cfg := Config{
		Endpoints:            splitList(v.GetStringSlice(keyEndpoints)),
		MaxRetries:           v.GetInt(keyMaxRetries),
		RetryDelay:           v.GetDuration(keyRetryDelay),
		ConnectTimeout:       v.GetDuration(keyConnectTimeout),
		Driver:               strings.ToLower(v.GetString(keyDriver)),
		Seed:                 v.GetUint64(keySeed),
		LogBackend:           strings.ToLower(v.GetString(keyLogBackend)),
		LogLevel:             v.GetString(keyLogLevel),
		Env:                  v.GetString(keyEnv),
		Workers:              v.GetInt(keyWorkers),
		ReadPct:              v.GetInt(keyReadPct),
		ProcessingDelay:      v.GetDuration(keyProcessingDelay),
		PriceTick:            priceTick,
		DrainBatchLimit:      v.GetInt(keyDrainBatchLimit),
		Rate:                 v.GetFloat64(keyRate),
		Duration:             v.GetDuration(keyDuration),
		MetricsAddr:          v.GetString(keyMetricsAddr),
		ObservabilityEnabled: v.GetBool(keyObservabilityEnabled),
		OTLPEndpoint:         v.GetString(keyOTLPEndpoint),
		SummaryJSON:          v.GetString(keySummaryJSON),
		Accounts:             v.GetInt(keyAccounts),
		SeedMarket:           v.GetBool(keySeedMarket),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// validate checks the values the library options don't check themselves.
func (c Config) validate() error {
	switch {
	case len(c.Endpoints) == 0:
		return errors.Join(errInvalidConfig, tradeorder.ErrEmptyEndpoints)
	case !slices.Contains(supportedDrivers, c.Driver):
		return errors.Join(errInvalidConfig, fmt.Errorf("%s must be one of %v, got %q", keyDriver, supportedDrivers, c.Driver))
	case !slices.Contains(supportedLogBackends, c.LogBackend):
		return errors.Join(errInvalidConfig, fmt.Errorf("%s must be one of %v, got %q", keyLogBackend, supportedLogBackends, c.LogBackend))
	case c.Workers < 1:
		return errors.Join(errInvalidConfig, fmt.Errorf("%s must be at least 1, got %d", keyWorkers, c.Workers))
	case c.Rate < 0:
		return errors.Join(errInvalidConfig, fmt.Errorf("%s must not be negative, got %v", keyRate, c.Rate))
	case c.Duration < 0:
		return errors.Join(errInvalidConfig, fmt.Errorf("%s must not be negative, got %v", keyDuration, c.Duration))
	case c.Accounts < 0:
		return errors.Join(errInvalidConfig, fmt.Errorf("%s must not be negative, got %d", keyAccounts, c.Accounts))
	}

	return nil
}

// iterationInterval is the pause between two iterations of one worker, 0 when unpaced.
func (c Config) iterationInterval() time.Duration {
	if c.Rate <= 0 {
		return 0
	}

	return time.Duration(float64(time.Second) / c.Rate)
}

// splitList flattens comma separated entries. Environment values arrive as one string.
func splitList(values []string) []string {
	var out []string

	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}

	return out
}
