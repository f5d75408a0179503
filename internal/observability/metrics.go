// Package observability wires Prometheus metrics for MediScan. Error
// telemetry lives in the telemetry package.
package observability

import (
	"fmt"
	stdlog "log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/mediscan/internal/httpclient"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	HTTP      *metrics.HTTPMetrics
	Datastore *metrics.DatastoreMetrics
	Diagnosis *metrics.DiagnosisMetrics
	Account   *metrics.AccountMetrics
	Events    *metrics.EventMetrics
}

// NewMetrics creates a private registry with all collectors plus the Go
// runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore metrics: %w", err)
	}
	diagnosisMetrics, err := metrics.NewDiagnosisMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Diagnosis metrics: %w", err)
	}
	accountMetrics, err := metrics.NewAccountMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Account metrics: %w", err)
	}
	eventMetrics, err := metrics.NewEventMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Event metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		HTTP:      httpMetrics,
		Datastore: datastoreMetrics,
		Diagnosis: diagnosisMetrics,
		Account:   accountMetrics,
		Events:    eventMetrics,
	}, nil
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(os.Stderr, "metrics handler: ", stdlog.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// InstrumentClient counts outbound requests made through client.
func (m *Metrics) InstrumentClient(client *httpclient.Client) {
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error) {
		status := 0
		if err == nil && resp != nil {
			status = resp.StatusCode
		} else if err != nil {
			log.Debug("outbound request failed",
				logger.String("host", req.URL.Host),
				logger.Error(err))
		}
		m.HTTP.RecordOutbound(req.URL.Host, status)
	})
}
