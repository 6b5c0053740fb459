// Package promadapters provides a Prometheus implementation of tradeorder.MetricsCollector.
//
// Vectors are registered on first use. The label names of a metric are fixed by its first
// observation, later observations fill missing labels with an empty value and drop unknown ones.
package promadapters

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

var helpTexts = map[string]string{
	tradeorder.MetricConnectionAttempts:   "Connection attempts per endpoint and outcome.",
	tradeorder.MetricSubmitDuration:       "Duration of submit transactions in seconds.",
	tradeorder.MetricDrainDuration:        "Duration of drain transactions in seconds.",
	tradeorder.MetricOrdersSubmitted:      "Number of orders submitted.",
	tradeorder.MetricOrdersProcessed:      "Number of orders processed by the last drain.",
	tradeorder.MetricTransactionConflicts: "Transactions aborted by a serialization failure or deadlock.",
	tradeorder.MetricDatabaseErrors:       "Failed transactions by error type.",
}

// durationBuckets spans 1ms to about 16s.
var durationBuckets = prometheus.ExponentialBuckets(0.001, 2, 15)

type vec[T any] struct {
	labelNames []string
	vector     T
}

// MetricsCollector implements tradeorder.MetricsCollector on a Prometheus registry.
type MetricsCollector struct {
	registry   *prometheus.Registry
	factory    promauto.Factory
	mu         sync.Mutex
	histograms map[string]vec[*prometheus.HistogramVec]
	counters   map[string]vec[*prometheus.CounterVec]
	gauges     map[string]vec[*prometheus.GaugeVec]
}

// NewMetricsCollector creates a collector registering its vectors on registry.
func NewMetricsCollector(registry *prometheus.Registry) *MetricsCollector {
	return &MetricsCollector{
		registry:   registry,
		factory:    promauto.With(registry),
		histograms: make(map[string]vec[*prometheus.HistogramVec]),
		counters:   make(map[string]vec[*prometheus.CounterVec]),
		gauges:     make(map[string]vec[*prometheus.GaugeVec]),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	v, exists := m.histograms[metric]
	if !exists {
		v.labelNames = labelNames(labels)
		v.vector = m.factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metric,
			Help:    help(metric),
			Buckets: durationBuckets,
		}, v.labelNames)
		m.histograms[metric] = v
	}
	m.mu.Unlock()

	v.vector.WithLabelValues(labelValues(v.labelNames, labels)...).Observe(duration.Seconds())
}

func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	m.mu.Lock()
	v, exists := m.counters[metric]
	if !exists {
		v.labelNames = labelNames(labels)
		v.vector = m.factory.NewCounterVec(prometheus.CounterOpts{
			Name: metric,
			Help: help(metric),
		}, v.labelNames)
		m.counters[metric] = v
	}
	m.mu.Unlock()

	v.vector.WithLabelValues(labelValues(v.labelNames, labels)...).Inc()
}

func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	v, exists := m.gauges[metric]
	if !exists {
		v.labelNames = labelNames(labels)
		v.vector = m.factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: metric,
			Help: help(metric),
		}, v.labelNames)
		m.gauges[metric] = v
	}
	m.mu.Unlock()

	v.vector.WithLabelValues(labelValues(v.labelNames, labels)...).Set(value)
}

func help(metric string) string {
	if h, ok := helpTexts[metric]; ok {
		return h
	}

	return "Trade workload metric " + metric + "."
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func labelValues(names []string, labels map[string]string) []string {
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = labels[name]
	}

	return values
}

var _ tradeorder.MetricsCollector = (*MetricsCollector)(nil)
