package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/igorsal/routewarden/internal/interfaces"
)

const namespace = "routewarden"

// PrometheusCollector implements the MetricsCollector interface using Prometheus
type PrometheusCollector struct {
	factory    promauto.Factory
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusCollector creates the relay's collector registered on reg.
// A nil reg uses the default registry.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	collector := newCollector(reg)
	collector.initializeMetrics()
	return collector
}

// NewClientCollector creates a collector holding the series the client side
// emits: relay dispatches, pipeline outcomes, swallowed store failures and
// circuit breakers. A nil reg uses the default registry.
func NewClientCollector(reg prometheus.Registerer) *PrometheusCollector {
	collector := newCollector(reg)
	collector.initializeClientMetrics()
	return collector
}

func newCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &PrometheusCollector{
		factory:    promauto.With(reg),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

var _ interfaces.MetricsCollector = (*PrometheusCollector)(nil)

func (p *PrometheusCollector) initializeMetrics() {
	// HTTP request metrics
	p.RegisterCustomCounter("http_requests_total", "Total number of HTTP requests",
		[]string{"method", "endpoint", "status_code"})
	p.RegisterCustomHistogram("http_request_duration_seconds", "HTTP request duration in seconds",
		[]string{"method", "endpoint", "status_code"}, nil)

	// Upstream calls made by the relay
	p.RegisterCustomCounter("upstream_requests_total", "Total number of proxied upstream requests",
		[]string{"method", "outcome"})
	p.RegisterCustomHistogram("upstream_request_duration_seconds", "Proxied upstream request duration in seconds",
		[]string{"method", "outcome"}, []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0})
	p.RegisterCustomCounter("upstream_response_bytes_total", "Bytes of normalized upstream response data",
		[]string{"method"})

	// Proxy requests answered by the handler
	p.RegisterCustomCounter("relay_requests_total", "Total number of proxy requests handled by the relay",
		[]string{"service", "operation", "status"})
	p.RegisterCustomHistogram("relay_request_duration_seconds", "Proxy request handling duration in seconds",
		[]string{"service", "operation"}, []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0})
}

func (p *PrometheusCollector) initializeClientMetrics() {
	p.RegisterCustomCounter("relay_requests_total", "Total number of relay dispatches from the client",
		[]string{"service", "operation", "status"})
	p.RegisterCustomHistogram("relay_request_duration_seconds", "Relay dispatch duration in seconds",
		[]string{"service", "operation"}, []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0})

	// Pipeline outcomes
	p.RegisterCustomCounter("pipeline_sends_total", "Pipeline sends by terminal state",
		[]string{"method", "state"})
	p.RegisterCustomCounter("pipeline_stale_responses_total", "Responses discarded because a newer send started",
		[]string{"state"})
	p.RegisterCustomCounter("persistence_failures_total", "Record store writes that failed and were swallowed",
		[]string{"table", "operation"})

	// Circuit breaker metrics
	p.RegisterCustomGauge("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		[]string{"name"})
	p.RegisterCustomCounter("circuit_breaker_events_total", "Total circuit breaker events",
		[]string{"name", "event"})
}

// IncrementCounter increments a counter metric
func (p *PrometheusCollector) IncrementCounter(name string, labels map[string]string) {
	counter, exists := p.counters[name]
	if !exists {
		return
	}

	counter.With(labels).Inc()
}

// AddCounter adds value to a counter metric
func (p *PrometheusCollector) AddCounter(name string, value float64, labels map[string]string) {
	counter, exists := p.counters[name]
	if !exists {
		return
	}

	counter.With(labels).Add(value)
}

// RecordDuration records a duration in a histogram
func (p *PrometheusCollector) RecordDuration(name string, duration float64, labels map[string]string) {
	histogram, exists := p.histograms[name]
	if !exists {
		return
	}

	histogram.With(labels).Observe(duration)
}

// SetGauge sets a gauge value
func (p *PrometheusCollector) SetGauge(name string, value float64, labels map[string]string) {
	gauge, exists := p.gauges[name]
	if !exists {
		return
	}

	gauge.With(labels).Set(value)
}

// Counter exposes a registered counter vector, mainly for assertions
func (p *PrometheusCollector) Counter(name string) *prometheus.CounterVec {
	return p.counters[name]
}

// RegisterCustomCounter registers a new counter metric
func (p *PrometheusCollector) RegisterCustomCounter(name, help string, labels []string) {
	if _, exists := p.counters[name]; exists {
		return
	}

	p.counters[name] = p.factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// RegisterCustomHistogram registers a new histogram metric
func (p *PrometheusCollector) RegisterCustomHistogram(name, help string, labels []string, buckets []float64) {
	if _, exists := p.histograms[name]; exists {
		return
	}

	if buckets == nil {
		buckets = prometheus.DefBuckets
	}

	p.histograms[name] = p.factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// RegisterCustomGauge registers a new gauge metric
func (p *PrometheusCollector) RegisterCustomGauge(name, help string, labels []string) {
	if _, exists := p.gauges[name]; exists {
		return
	}

	p.gauges[name] = p.factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// Noop discards all metrics
type Noop struct{}

var _ interfaces.MetricsCollector = Noop{}

func (Noop) IncrementCounter(string, map[string]string) {}

func (Noop) AddCounter(string, float64, map[string]string) {}

func (Noop) RecordDuration(string, float64, map[string]string) {}

func (Noop) SetGauge(string, float64, map[string]string) {}
