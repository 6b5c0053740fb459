// Package oteladapters provides OpenTelemetry implementations of the tradeorder observability interfaces.
//
// SlogBridgeLogger and OTelLogger implement tradeorder.ContextualLogger, MetricsCollector implements
// tradeorder.ContextualMetricsCollector and TracingCollector implements tradeorder.TracingCollector.
// All of them use the providers they are given, so the caller decides where telemetry is exported to.
//
//	meter := otel.Meter("trade-workload")
//	tracer := otel.Tracer("trade-workload")
//
//	engine, err := postgresengine.NewEngineFromPGXConn(conn,
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("trade-workload")),
//	)
package oteladapters
