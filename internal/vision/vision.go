// Package vision reads resistor bands from photos through a multimodal model.
//
// The model's answer is trusted as given: its resistance and formatted value
// are passed through unchanged, only band names are capitalised. Analyzers
// compose, so a GeminiAnalyzer is normally wrapped by WithRateLimit and
// NewCachedAnalyzer.
package vision

import (
	"context"
	"fmt"

	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/observability/metrics"
	"github.com/labddb/resistorlens/internal/reading"
)

const componentName = "vision"

// Outcome sentinels. Analyzers return them wrapped in a categorised error.
var (
	// ErrNoResult means the model answered but no usable reading came back.
	ErrNoResult = errors.NewStd("vision: could not identify component")
	// ErrQuotaExceeded means the service or the local limiter refused the call.
	ErrQuotaExceeded = errors.NewStd("vision: quota exceeded")
	// ErrNotConfigured means the service cannot be used with the current settings.
	ErrNotConfigured = errors.NewStd("vision: service not configured")
	// ErrAnalysisFailed covers every other failure; retrying may help.
	ErrAnalysisFailed = errors.NewStd("vision: analysis failed")
	// ErrInvalidImage means the input is not an image the service accepts.
	ErrInvalidImage = errors.NewStd("vision: invalid image")
)

// User-facing messages.
const (
	MessageNoResult      = "AI could not identify the component clearly. Ensure the resistor is centered and well-lit."
	MessageQuota         = "The vision service quota has been exhausted. Wait a moment and try again, or use manual mode."
	MessageNotConfigured = "System configuration error. The expert vision service is currently unavailable."
	MessageFailed        = "An unexpected error occurred during visual analysis."
	MessageInvalidImage  = "The image could not be read. Use a JPEG, PNG, WebP or HEIC photo."
)

// Analyzer reads the first three bands of the resistor in img.
type Analyzer interface {
	Analyze(ctx context.Context, img Image) (reading.Result, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, img Image) (reading.Result, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, img Image) (reading.Result, error) {
	return f(ctx, img)
}

// UserMessage returns the message to show for an error from an Analyzer.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidImage):
		return MessageInvalidImage
	case errors.Is(err, ErrNotConfigured):
		return MessageNotConfigured
	case errors.Is(err, ErrQuotaExceeded):
		return MessageQuota
	case errors.Is(err, ErrNoResult):
		return MessageNoResult
	default:
		return MessageFailed
	}
}

// Outcome maps an Analyze error to a metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInvalidImage):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrNotConfigured):
		return metrics.OutcomeUnavailable
	case errors.Is(err, ErrQuotaExceeded):
		return metrics.OutcomeQuota
	case errors.Is(err, ErrNoResult):
		return metrics.OutcomeNoResult
	default:
		return metrics.OutcomeFailed
	}
}

// newError wraps cause under sentinel as a categorised error.
func newError(sentinel, cause error, category errors.ErrorCategory, operation string) error {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return errors.New(err).
		Component(componentName).
		Category(category).
		Context("operation", operation).
		Build()
}

// unavailable always reports ErrNotConfigured.
func unavailable(reason string) Analyzer {
	return AnalyzerFunc(func(context.Context, Image) (reading.Result, error) {
		return reading.Result{}, newError(ErrNotConfigured, errors.NewStd(reason), errors.CategoryConfiguration, "analyze")
	})
}
