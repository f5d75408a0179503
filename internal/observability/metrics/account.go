package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/tphakala/mediscan/internal/logger"
)

// AccountMetrics tracks authentication activity.
type AccountMetrics struct {
	authOperations *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	sessionsPurged prometheus.Counter
}

// NewAccountMetrics creates and registers account metrics.
func NewAccountMetrics(registry prometheus.Registerer) (*AccountMetrics, error) {
	m := &AccountMetrics{
		authOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_auth_operations_total",
			Help: "Total number of account operations by result",
		}, []string{"operation", "result"}), // result: success, duplicate_email, user_not_found, invalid_credentials, invalid_input, error
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "account_sessions_opened",
			Help: "Sessions opened minus sessions closed since start",
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_sessions_purged_total",
			Help: "Expired sessions removed by cleanup",
		}),
	}

	for _, c := range []prometheus.Collector{m.authOperations, m.sessionsActive, m.sessionsPurged} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register account metrics: %w", err)
		}
	}
	return m, nil
}

// RecordOperation counts an account operation result.
func (m *AccountMetrics) RecordOperation(operation, result string) {
	m.authOperations.WithLabelValues(operation, result).Inc()
}

// SessionOpened increments the open session gauge.
func (m *AccountMetrics) SessionOpened() {
	m.sessionsActive.Inc()
}

// SessionClosed decrements the open session gauge.
func (m *AccountMetrics) SessionClosed() {
	m.sessionsActive.Dec()
}

// SessionsPurged records expired sessions removed by cleanup.
func (m *AccountMetrics) SessionsPurged(n int64) {
	m.sessionsPurged.Add(float64(n))
	m.sessionsActive.Sub(float64(n))
}

// OpenSessions returns the current gauge value.
func (m *AccountMetrics) OpenSessions() float64 {
	metric := &dto.Metric{}
	if err := m.sessionsActive.Write(metric); err != nil {
		log.Warn("failed to read open sessions gauge", logger.Error(err))
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
