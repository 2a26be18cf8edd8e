// Package metrics implements the orchestrator's metrics contract with the
// Prometheus client library.
//
// Prometheus scrapes the handler returned by Handler and sees data like:
//
//	# HELP rag_queries_total Counter for rag_queries_total
//	# TYPE rag_queries_total counter
//	rag_queries_total{tenant="acme"} 1542
//
//	# HELP rag_query_duration_seconds Histogram for rag_query_duration_seconds
//	# TYPE rag_query_duration_seconds histogram
//	rag_query_duration_seconds_bucket{tenant="acme",le="0.5"} 1500
//	rag_query_duration_seconds_bucket{tenant="acme",le="+Inf"} 1542
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

// Prometheus records counters and durations in a prometheus.Registry.
// Metric vectors are created lazily on first use, keyed by name, so the
// orchestrator does not need to pre-declare its metric set here.
type Prometheus struct {
	mu         sync.RWMutex
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec

	durationBuckets []float64
}

var _ rag.Metrics = (*Prometheus)(nil)

// Option configures the Prometheus provider.
type Option func(*Prometheus)

// WithDurationBuckets sets custom buckets for duration histograms.
func WithDurationBuckets(buckets []float64) Option {
	return func(p *Prometheus) {
		p.durationBuckets = buckets
	}
}

// WithRegistry uses an existing Prometheus registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(p *Prometheus) {
		p.registry = registry
	}
}

// NewPrometheus creates a Prometheus metrics provider. By default it
// creates its own registry and registers Go runtime and process
// collectors.
//
// Example:
//
//	provider := metrics.NewPrometheus(
//	    metrics.WithDurationBuckets([]float64{0.05, 0.1, 0.5, 1, 5, 30}),
//	)
//	http.Handle("/metrics", provider.Handler())
func NewPrometheus(opts ...Option) *Prometheus {
	p := &Prometheus{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		durationBuckets: []float64{
			0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.registry.MustRegister(collectors.NewGoCollector())
	p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return p
}

// Counter adds value to the named counter.
func (p *Prometheus) Counter(_ context.Context, name string, value int64, labels map[string]string) {
	counter := p.getOrCreateCounter(name, labels)
	counter.With(labels).Add(float64(value))
}

// RecordDuration observes a duration in seconds in the named histogram.
func (p *Prometheus) RecordDuration(_ context.Context, name string, duration time.Duration, labels map[string]string) {
	histogram := p.getOrCreateHistogram(name, labels)
	histogram.With(labels).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for Prometheus scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) getOrCreateCounter(name string, labels map[string]string) *prometheus.CounterVec {
	p.mu.RLock()
	counter, exists := p.counters[name]
	p.mu.RUnlock()

	if exists {
		return counter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if counter, exists = p.counters[name]; exists {
		return counter
	}

	counter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Counter for " + name,
	}, labelNames(labels))

	p.registry.MustRegister(counter)
	p.counters[name] = counter
	return counter
}

func (p *Prometheus) getOrCreateHistogram(name string, labels map[string]string) *prometheus.HistogramVec {
	p.mu.RLock()
	histogram, exists := p.histograms[name]
	p.mu.RUnlock()

	if exists {
		return histogram
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if histogram, exists = p.histograms[name]; exists {
		return histogram
	}

	histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Histogram for " + name,
		Buckets: p.durationBuckets,
	}, labelNames(labels))

	p.registry.MustRegister(histogram)
	p.histograms[name] = histogram
	return histogram
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}
