package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/birdtrade/trade-workload-go/internal/logging"
	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/failover"
	"github.com/birdtrade/trade-workload-go/tradeorder/oteladapters"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine"
	"github.com/birdtrade/trade-workload-go/tradeorder/promadapters"
)

const (
	metricsPath           = "/metrics"
	metricExportInterval  = 5 * time.Second
	telemetryShutdownWait = 5 * time.Second
	readHeaderTimeout     = 5 * time.Second
)

// telemetry bundles the logger and the optional metrics and tracing sinks of one command run.
type telemetry struct {
	logger           tradeorder.Logger
	contextualLogger tradeorder.ContextualLogger
	metricsCollector tradeorder.MetricsCollector
	tracingCollector tradeorder.TracingCollector

	shutdowns []func(context.Context) error
}

// newLogger builds the configured logging backend. The returned value satisfies both logger interfaces.
func newLogger(cfg Config) (interface {
	tradeorder.Logger
	tradeorder.ContextualLogger
}, func(context.Context) error, error) {
	if cfg.LogBackend == logging.BackendZap {
		zapLogger, err := logging.NewZap(serviceName, cfg.Env, cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}

		adapter := logging.NewZapLogger(zapLogger)

		syncLogger := func(context.Context) error {
			// Syncing a terminal stdout fails on some platforms, there is nothing to act on.
			_ = adapter.Sync()
			return nil
		}

		return adapter, syncLogger, nil
	}

	return logging.NewSlog(serviceName, cfg.Env, cfg.LogLevel, os.Stdout), func(context.Context) error { return nil }, nil
}

// newTelemetry wires logging plus Prometheus and OTLP exporters as configured.
func newTelemetry(ctx context.Context, cfg Config) (*telemetry, error) {
	logger, syncLogger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	t := &telemetry{logger: logger}

	var collectors teeMetricsCollector

	if cfg.MetricsAddr != "" {
		promCollector := promadapters.NewMetricsCollector(prometheus.NewRegistry())
		t.shutdowns = append(t.shutdowns, serveMetrics(cfg.MetricsAddr, promCollector.Handler(), logger))
		collectors = append(collectors, promCollector)
		logger.Info("prometheus metrics enabled", "addr", cfg.MetricsAddr, "path", metricsPath)
	}

	if cfg.ObservabilityEnabled {
		providers, providerErr := newOTelProviders(ctx, cfg.OTLPEndpoint)
		if providerErr != nil {
			return nil, providerErr
		}

		t.shutdowns = append(t.shutdowns, providers.shutdown)
		t.tracingCollector = oteladapters.NewTracingCollector(providers.tracerProvider.Tracer(serviceName))
		t.contextualLogger = logger
		collectors = append(collectors, oteladapters.NewMetricsCollector(providers.meterProvider.Meter(serviceName)))
		logger.Info("opentelemetry export enabled", "otlp_endpoint", cfg.OTLPEndpoint)
	}

	switch len(collectors) {
	case 0:
	case 1:
		t.metricsCollector = collectors[0]
	default:
		t.metricsCollector = collectors
	}

	t.shutdowns = append(t.shutdowns, syncLogger)

	return t, nil
}

// engineOptions passes either the contextual or the plain logger, never both, so nothing is logged twice.
func (t *telemetry) engineOptions() []postgresengine.Option {
	var options []postgresengine.Option

	if t.contextualLogger != nil {
		options = append(options, postgresengine.WithContextualLogger(t.contextualLogger))
	} else if t.logger != nil {
		options = append(options, postgresengine.WithLogger(t.logger))
	}

	if t.metricsCollector != nil {
		options = append(options, postgresengine.WithMetrics(t.metricsCollector))
	}

	if t.tracingCollector != nil {
		options = append(options, postgresengine.WithTracing(t.tracingCollector))
	}

	return options
}

func (t *telemetry) managerOptions() []failover.Option {
	var options []failover.Option

	if t.contextualLogger != nil {
		options = append(options, failover.WithContextualLogger(t.contextualLogger))
	} else if t.logger != nil {
		options = append(options, failover.WithLogger(t.logger))
	}

	if t.metricsCollector != nil {
		options = append(options, failover.WithMetrics(t.metricsCollector))
	}

	return options
}

// shutdown flushes exporters and stops the metrics server.
func (t *telemetry) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownWait)
	defer cancel()

	var errs []error
	for _, fn := range t.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func serveMetrics(addr string, handler http.Handler, logger tradeorder.Logger) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err.Error())
		}
	}()

	return server.Shutdown
}

type otelProviders struct {
	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
}

// newOTelProviders sets up OTLP gRPC trace and metric export and registers the providers globally.
func newOTelProviders(ctx context.Context, endpoint string) (*otelProviders, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)

	metricExporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(metricExportInterval))),
		metric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &otelProviders{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
	}, nil
}

func (p *otelProviders) shutdown(ctx context.Context) error {
	return errors.Join(p.tracerProvider.Shutdown(ctx), p.meterProvider.Shutdown(ctx))
}

// teeMetricsCollector forwards every measurement to all collectors.
type teeMetricsCollector []tradeorder.MetricsCollector

func (c teeMetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	for _, collector := range c {
		collector.RecordDuration(metric, duration, labels)
	}
}

func (c teeMetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	for _, collector := range c {
		collector.IncrementCounter(metric, labels)
	}
}

func (c teeMetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	for _, collector := range c {
		collector.RecordValue(metric, value, labels)
	}
}
