package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics tracks diagnosis event publishing per transport.
type EventMetrics struct {
	published      *prometheus.CounterVec
	errors         *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec
	messageSize    *prometheus.HistogramVec
	connected      *prometheus.GaugeVec
}

// NewEventMetrics creates and registers event metrics.
func NewEventMetrics(registry prometheus.Registerer) (*EventMetrics, error) {
	m := &EventMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of diagnosis events delivered",
		}, []string{"transport"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_publish_errors_total",
			Help: "Total number of failed diagnosis event deliveries",
		}, []string{"transport"}),
		publishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "events_publish_latency_seconds",
			Help:    "Latency of event publish operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		}, []string{"transport"}),
		messageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "events_message_size_bytes",
			Help:    "Size of published event payloads",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}, []string{"transport"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "events_transport_connected",
			Help: "Transport connection status (1 connected, 0 disconnected)",
		}, []string{"transport"}),
	}

	for _, c := range []prometheus.Collector{m.published, m.errors, m.publishLatency, m.messageSize, m.connected} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register event metrics: %w", err)
		}
	}
	return m, nil
}

// ObservePublish records one publish attempt. A nil receiver is a no-op so
// publishers work without metrics.
func (m *EventMetrics) ObservePublish(transport string, size int, started time.Time, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.errors.WithLabelValues(transport).Inc()
		return
	}
	m.published.WithLabelValues(transport).Inc()
	m.publishLatency.WithLabelValues(transport).Observe(time.Since(started).Seconds())
	m.messageSize.WithLabelValues(transport).Observe(float64(size))
}

// SetConnected updates the connection gauge for transport.
func (m *EventMetrics) SetConnected(transport string, connected bool) {
	if m == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	m.connected.WithLabelValues(transport).Set(v)
}

// Published returns the delivered counter for transport.
func (m *EventMetrics) Published(transport string) prometheus.Counter {
	return m.published.WithLabelValues(transport)
}
