package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains platform-level metrics for the retrieval layer
// (not source-specific)
type Metrics struct {
	// Upstream request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec

	// NATS metrics (durable cache backend)
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drugscout",
				Subsystem: "requests",
				Name:      "total",
				Help:      "Total number of upstream requests by source, method, and status class",
			},
			[]string{"source", "method", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "drugscout",
				Subsystem: "requests",
				Name:      "duration_seconds",
				Help:      "Upstream request duration in seconds, including retries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source", "method"},
		),

		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drugscout",
				Subsystem: "requests",
				Name:      "retries_total",
				Help:      "Total number of retried upstream attempts",
			},
			[]string{"source"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drugscout",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of surfaced errors by source and class",
			},
			[]string{"source", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "drugscout",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "drugscout",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordRequest increments the upstream request counter
func (c *Metrics) RecordRequest(source, method, status string) {
	c.RequestsTotal.WithLabelValues(source, method, status).Inc()
}

// RecordRequestDuration records the duration of a completed upstream call
func (c *Metrics) RecordRequestDuration(source, method string, duration time.Duration) {
	c.RequestDuration.WithLabelValues(source, method).Observe(duration.Seconds())
}

// RecordRetry increments the retry counter for a source
func (c *Metrics) RecordRetry(source string) {
	c.RetriesTotal.WithLabelValues(source).Inc()
}

// RecordError increments the error counter
func (c *Metrics) RecordError(source, class string) {
	c.ErrorsTotal.WithLabelValues(source, class).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
