// Package promadapters provides Prometheus adapters for the fakersql observability interfaces.
package promadapters

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

// DefaultDurationBuckets are the histogram buckets for durations, in seconds.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// MetricsCollector implements fakersql.MetricsCollector on a Prometheus registry:
//   - RecordDuration -> HistogramVec (seconds)
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// Vectors are created on first use. The label names of a metric are fixed by its first
// observation; later observations fill missing labels with "" and drop unknown ones.
type MetricsCollector struct {
	registry *prometheus.Registry
	buckets  []float64

	mu         sync.Mutex
	histograms map[string]*labeledVec[*prometheus.HistogramVec]
	counters   map[string]*labeledVec[*prometheus.CounterVec]
	gauges     map[string]*labeledVec[*prometheus.GaugeVec]
}

type labeledVec[V any] struct {
	vec    V
	labels []string
}

// NewMetricsCollector creates a MetricsCollector that registers its vectors in registry.
// A nil registry gets a fresh one with the Go and process collectors.
func NewMetricsCollector(registry *prometheus.Registry, buckets []float64) *MetricsCollector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	if len(buckets) == 0 {
		buckets = DefaultDurationBuckets
	}

	return &MetricsCollector{
		registry:   registry,
		buckets:    buckets,
		histograms: make(map[string]*labeledVec[*prometheus.HistogramVec]),
		counters:   make(map[string]*labeledVec[*prometheus.CounterVec]),
		gauges:     make(map[string]*labeledVec[*prometheus.GaugeVec]),
	}
}

// Registry returns the registry the vectors are registered in.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordDuration observes duration in seconds.
func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	h := m.histogram(metric, labels)
	if h == nil {
		return
	}

	h.vec.WithLabelValues(labelValues(h.labels, labels)...).Observe(duration.Seconds())
}

// IncrementCounter adds one to the counter.
func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	c := m.counter(metric, labels)
	if c == nil {
		return
	}

	c.vec.WithLabelValues(labelValues(c.labels, labels)...).Inc()
}

// RecordValue sets the gauge to value.
func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	g := m.gauge(metric, labels)
	if g == nil {
		return
	}

	g.vec.WithLabelValues(labelValues(g.labels, labels)...).Set(value)
}

func (m *MetricsCollector) histogram(metric string, labels map[string]string) *labeledVec[*prometheus.HistogramVec] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[metric]; ok {
		return h
	}

	names := labelNames(labels)
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: metric, Help: helpText(metric), Buckets: m.buckets},
		names,
	)
	if err := m.registry.Register(vec); err != nil {
		return nil
	}

	h := &labeledVec[*prometheus.HistogramVec]{vec: vec, labels: names}
	m.histograms[metric] = h

	return h
}

func (m *MetricsCollector) counter(metric string, labels map[string]string) *labeledVec[*prometheus.CounterVec] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[metric]; ok {
		return c
	}

	names := labelNames(labels)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metric, Help: helpText(metric)}, names)
	if err := m.registry.Register(vec); err != nil {
		return nil
	}

	c := &labeledVec[*prometheus.CounterVec]{vec: vec, labels: names}
	m.counters[metric] = c

	return c
}

func (m *MetricsCollector) gauge(metric string, labels map[string]string) *labeledVec[*prometheus.GaugeVec] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[metric]; ok {
		return g
	}

	names := labelNames(labels)
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: metric, Help: helpText(metric)}, names)
	if err := m.registry.Register(vec); err != nil {
		return nil
	}

	g := &labeledVec[*prometheus.GaugeVec]{vec: vec, labels: names}
	m.gauges[metric] = g

	return g
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

func helpText(metric string) string {
	return "fakersql " + strings.ReplaceAll(strings.TrimPrefix(metric, "fakersql_"), "_", " ")
}

var _ fakersql.MetricsCollector = (*MetricsCollector)(nil)
