package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Vision outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeNoResult    = "no_result"
	OutcomeQuota       = "quota"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
	OutcomeInvalid     = "invalid_image"
)

// VisionMetrics tracks calls to the external vision model.
type VisionMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	cacheTotal      *prometheus.CounterVec
	confidence      prometheus.Histogram
	imageBytes      prometheus.Histogram
	rateLimitWaits  prometheus.Counter
}

// NewVisionMetrics creates and registers vision metrics.
func NewVisionMetrics(registry *prometheus.Registry) (*VisionMetrics, error) {
	m := &VisionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register vision metrics: %w", err)
	}
	return m, nil
}

func (m *VisionMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resistorlens_vision_requests_total",
			Help: "Total number of vision analysis requests by outcome",
		},
		[]string{"outcome"},
	)

	m.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "resistorlens_vision_request_duration_seconds",
		Help:    "Time taken by the vision model to answer",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
	})

	m.cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resistorlens_vision_cache_total",
			Help: "Vision result cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	m.confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "resistorlens_vision_confidence",
		Help:    "Confidence reported for successful vision readings",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	})

	m.imageBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "resistorlens_vision_image_bytes",
		Help:    "Size of images submitted for analysis",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	})

	m.rateLimitWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "resistorlens_vision_rate_limited_total",
		Help: "Requests rejected by the local rate limiter",
	})
}

// RecordAnalysis records one completed model call.
func (m *VisionMetrics) RecordAnalysis(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(d.Seconds())
}

// RecordCache records a cache lookup.
func (m *VisionMetrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.cacheTotal.WithLabelValues("miss").Inc()
}

// ObserveConfidence records the confidence of a successful reading.
func (m *VisionMetrics) ObserveConfidence(confidence int) {
	if m == nil {
		return
	}
	m.confidence.Observe(float64(confidence))
}

// ObserveImageSize records the size of a submitted image.
func (m *VisionMetrics) ObserveImageSize(n int) {
	if m == nil {
		return
	}
	m.imageBytes.Observe(float64(n))
}

// IncrementRateLimited counts a request refused by the limiter.
func (m *VisionMetrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitWaits.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *VisionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.cacheTotal.Describe(ch)
	m.confidence.Describe(ch)
	m.imageBytes.Describe(ch)
	m.rateLimitWaits.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *VisionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.cacheTotal.Collect(ch)
	m.confidence.Collect(ch)
	m.imageBytes.Collect(ch)
	m.rateLimitWaits.Collect(ch)
}
