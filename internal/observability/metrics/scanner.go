package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ScannerMetrics tracks readings produced by the scanner service.
type ScannerMetrics struct {
	registry *prometheus.Registry

	readingsTotal  *prometheus.CounterVec
	qualityTotal   *prometheus.CounterVec
	operations     *prometheus.CounterVec
	durations      *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	lastResistance prometheus.Gauge
}

// NewScannerMetrics creates and registers scanner metrics.
func NewScannerMetrics(registry *prometheus.Registry) (*ScannerMetrics, error) {
	m := &ScannerMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register scanner metrics: %w", err)
	}
	return m, nil
}

func (m *ScannerMetrics) initMetrics() {
	m.readingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resistorlens_readings_total",
			Help: "Total number of resistor readings by source",
		},
		[]string{"source"}, // camera, upload, manual, bands
	)

	m.qualityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resistorlens_reading_quality_total",
			Help: "Readings grouped by quality label",
		},
		[]string{"quality"},
	)

	m.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resistorlens_scanner_operations_total",
			Help: "Scanner operations by status",
		},
		[]string{"operation", "status"},
	)

	m.durations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resistorlens_scanner_operation_duration_seconds",
			Help:    "Scanner operation duration",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"operation"},
	)

	m.errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resistorlens_scanner_errors_total",
			Help: "Scanner errors by category",
		},
		[]string{"operation", "error_type"},
	)

	m.lastResistance = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "resistorlens_last_resistance_ohms",
		Help: "Resistance of the most recent reading",
	})
}

// RecordReading counts a produced reading.
func (m *ScannerMetrics) RecordReading(source, quality string, ohms float64) {
	if m == nil {
		return
	}
	m.readingsTotal.WithLabelValues(source).Inc()
	m.qualityTotal.WithLabelValues(quality).Inc()
	m.lastResistance.Set(ohms)
}

// RecordOperation implements Recorder.
func (m *ScannerMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *ScannerMetrics) RecordDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *ScannerMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(operation, errorType).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ScannerMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.readingsTotal.Describe(ch)
	m.qualityTotal.Describe(ch)
	m.operations.Describe(ch)
	m.durations.Describe(ch)
	m.errors.Describe(ch)
	m.lastResistance.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ScannerMetrics) Collect(ch chan<- prometheus.Metric) {
	m.readingsTotal.Collect(ch)
	m.qualityTotal.Collect(ch)
	m.operations.Collect(ch)
	m.durations.Collect(ch)
	m.errors.Collect(ch)
	m.lastResistance.Collect(ch)
}
