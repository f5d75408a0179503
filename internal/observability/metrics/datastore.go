// Package metrics provides Prometheus collectors for MediScan components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for datastore operations.
type DatastoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	transactionsTotal *prometheus.CounterVec
	resultSize        *prometheus.HistogramVec

	connectionsOpen  prometheus.Gauge
	connectionsInUse prometheus.Gauge
	connectionsIdle  prometheus.Gauge

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers datastore metrics.
func NewDatastoreMetrics(registry prometheus.Registerer) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_operations_total",
			Help: "Total number of datastore operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_operation_duration_seconds",
			Help:    "Time taken for datastore operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"operation"},
	)

	m.operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_operation_errors_total",
			Help: "Total number of datastore operation errors",
		},
		[]string{"operation", "error_type"},
	)

	m.transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_transactions_total",
			Help: "Total number of datastore transactions by outcome",
		},
		[]string{"status"}, // committed, rollback, cancelled
	)

	m.resultSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_query_result_size_rows",
			Help:    "Number of rows returned by list queries",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"operation"},
	)

	m.connectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_connections_open",
		Help: "Number of open database connections",
	})
	m.connectionsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_connections_in_use",
		Help: "Number of database connections in use",
	})
	m.connectionsIdle = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_connections_idle",
		Help: "Number of idle database connections",
	})

	m.collectors = []prometheus.Collector{
		m.operationsTotal, m.operationDuration, m.operationErrors,
		m.transactionsTotal, m.resultSize,
		m.connectionsOpen, m.connectionsInUse, m.connectionsIdle,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordOperation records one operation with its outcome and duration.
func (m *DatastoreMetrics) RecordOperation(operation, status string, seconds float64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordOperationError records a failed operation by error type.
func (m *DatastoreMetrics) RecordOperationError(operation, errorType string) {
	m.operationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordTransaction records a transaction outcome.
func (m *DatastoreMetrics) RecordTransaction(status string) {
	m.transactionsTotal.WithLabelValues(status).Inc()
}

// RecordResultSize records the row count of a list query.
func (m *DatastoreMetrics) RecordResultSize(operation string, rows int) {
	m.resultSize.WithLabelValues(operation).Observe(float64(rows))
}

// UpdateConnectionStats mirrors database/sql pool statistics.
func (m *DatastoreMetrics) UpdateConnectionStats(open, inUse, idle int) {
	m.connectionsOpen.Set(float64(open))
	m.connectionsInUse.Set(float64(inUse))
	m.connectionsIdle.Set(float64(idle))
}
