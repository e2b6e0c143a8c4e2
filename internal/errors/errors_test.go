package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = NewStd("sentinel")

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuilderKeepsSentinelChain(t *testing.T) {
	ee := New(fmt.Errorf("%w: %q", errSentinel, "purple")).
		Component("colorcode").
		Category(CategoryColorLookup).
		Context("color", "purple").
		Build()

	require.Error(t, ee)
	assert.True(t, Is(ee, errSentinel), "sentinel must be reachable through the enhanced error")
	assert.True(t, IsCategory(ee, CategoryColorLookup))
	assert.Equal(t, "purple", ee.GetContext()["color"])

	wrapped := fmt.Errorf("decode: %w", ee)
	assert.True(t, Is(wrapped, errSentinel))
	assert.True(t, IsCategory(wrapped, CategoryColorLookup))
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	inner := New(NewStd("db down")).Category(CategoryDatabase).Build()
	outer := New(fmt.Errorf("load history: %w", inner)).Build()

	assert.Equal(t, CategoryDatabase, outer.Category)
}

func TestCategoryHeuristics(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"quota exceeded for model", CategoryQuota},
		{"connection refused", CategoryNetwork},
		{"invalid slot 7", CategoryValidation},
		{"open config.yaml", CategoryFileIO},
		{"something odd", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, New(NewStd(tt.msg)).Build().Category)
		})
	}
}

func TestPriorityFallsBackToMedium(t *testing.T) {
	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)
}

func TestTelemetryReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	_ = New(NewStd("vision failed")).Category(CategoryVision).Build()

	require.Len(t, reporter.reported, 1)
	assert.Equal(t, CategoryVision, reporter.reported[0].Category)
}

func TestUserInputErrorsAreNotReported(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("unknown color")).Category(CategoryColorLookup).Build()
	_ = New(fmt.Errorf("invalid multiplier band: %w", ee)).Category(CategoryValidation).Build()
	assert.Empty(t, reporter.reported)

	_ = New(NewStd("connection refused")).Category(CategoryDatabase).Build()
	require.Len(t, reporter.reported, 1)
	assert.Equal(t, CategoryDatabase, reporter.reported[0].Category)
}

func TestBasicURLScrub(t *testing.T) {
	scrubbed := basicURLScrub("Error at https://generativelanguage.googleapis.com/v1beta/models?key=secret123")
	assert.Equal(t, "Error at https://generativelanguage.googleapis.com/v1beta/models?[REDACTED]", scrubbed)

	scrubbed = basicURLScrub("Config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")

	scrubbed = basicURLScrub("key AIzaSyD-1234567890abcdefghijklmn leaked")
	assert.False(t, strings.Contains(scrubbed, "AIzaSy"), "google key must be scrubbed: %s", scrubbed)
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(NewStd("boom")).
		Component("vision").
		Category(CategoryVision).
		Context("operation", "generate_content").
		Build()

	assert.Equal(t, "Vision Vision Analysis Error Generate Content", generateErrorTitle(ee))
}
