package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DiagnosisMetrics tracks the analysis pipeline.
type DiagnosisMetrics struct {
	analyses          *prometheus.CounterVec
	confidence        *prometheus.HistogramVec
	unmatched         *prometheus.CounterVec
	classifyDuration  *prometheus.HistogramVec
	imageSize         *prometheus.HistogramVec
	stagingOperations *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewDiagnosisMetrics creates and registers diagnosis metrics.
func NewDiagnosisMetrics(registry prometheus.Registerer) (*DiagnosisMetrics, error) {
	m := &DiagnosisMetrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diagnosis_analyses_total",
			Help: "Total number of analyses by organ and outcome",
		}, []string{"organ", "status"}),
		confidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diagnosis_confidence_percent",
			Help:    "Normalized confidence of stored diagnoses",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}, []string{"organ"}),
		unmatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diagnosis_unmatched_labels_total",
			Help: "Classifier labels that matched no knowledge base rule",
		}, []string{"organ"}),
		classifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diagnosis_classifier_duration_seconds",
			Help:    "Time taken by the classification service",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		}, []string{"organ", "status"}),
		imageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diagnosis_image_size_bytes",
			Help:    "Size of uploaded scans",
			Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor4, BucketCount8),
		}, []string{"organ"}),
		stagingOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diagnosis_staging_operations_total",
			Help: "Staging buffer lookups and writes",
		}, []string{"result"}),
	}
	m.collectors = []prometheus.Collector{
		m.analyses, m.confidence, m.unmatched, m.classifyDuration, m.imageSize, m.stagingOperations,
	}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register diagnosis metrics: %w", err)
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *DiagnosisMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DiagnosisMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordAnalysis records an analysis outcome; confidence and matched are
// only used on success.
func (m *DiagnosisMetrics) RecordAnalysis(organ, status string, confidence int, matched bool) {
	m.analyses.WithLabelValues(organ, status).Inc()
	if status != StatusSuccess {
		return
	}
	m.confidence.WithLabelValues(organ).Observe(float64(confidence))
	if !matched {
		m.unmatched.WithLabelValues(organ).Inc()
	}
}

// RecordClassification records one classifier call.
func (m *DiagnosisMetrics) RecordClassification(organ, status string, seconds float64) {
	m.classifyDuration.WithLabelValues(organ, status).Observe(seconds)
}

// RecordImageSize records an upload size.
func (m *DiagnosisMetrics) RecordImageSize(organ string, size int) {
	m.imageSize.WithLabelValues(organ).Observe(float64(size))
}

// RecordStaging records a staging buffer operation (hit, miss, store, evicted).
func (m *DiagnosisMetrics) RecordStaging(result string) {
	m.stagingOperations.WithLabelValues(result).Inc()
}
