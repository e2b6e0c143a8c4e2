// Package reading defines the result record shared by every resistor source.
package reading

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/labddb/resistorlens/internal/colorcode"
)

// ManualConfidence is the fixed confidence of manually entered readings.
const ManualConfidence = 100

// Quality labels shown next to a result.
type Quality string

const (
	QualityManual        Quality = "Manual Input"
	QualityHighPrecision Quality = "High Precision"
	QualityVerify        Quality = "Verify Values"
	QualityLow           Quality = "Low Confidence"
)

// Confidence thresholds for Quality.
const (
	highPrecisionThreshold = 80
	verifyThreshold        = 60
)

// Result is one resistor reading. A new Result is created for every decode;
// existing values are never modified.
type Result struct {
	Bands          []string `json:"bands" yaml:"bands"`
	ResistanceOhms float64  `json:"resistance_ohms" yaml:"resistance_ohms"`
	FormattedValue string   `json:"formatted_value" yaml:"formatted_value"`
	Confidence     int      `json:"confidence" yaml:"confidence"`
	IsManual       bool     `json:"is_manual" yaml:"is_manual"`
}

// VisionResponse is the JSON object returned by the vision service.
type VisionResponse struct {
	Bands          []string `json:"bands"`
	ResistanceOhms float64  `json:"resistance_ohms"`
	FormattedValue string   `json:"formatted_value"`
	Confidence     float64  `json:"confidence"`
}

// NewManual builds the Result for locally decoded bands: the value is
// formatted here and confidence is fixed at 100.
func NewManual(bands []colorcode.Color, ohms float64) Result {
	names := make([]string, len(bands))
	for i, b := range bands {
		names[i] = b.DisplayName()
	}
	return Result{
		Bands:          names,
		ResistanceOhms: ohms,
		FormattedValue: colorcode.Format(ohms),
		Confidence:     ManualConfidence,
		IsManual:       true,
	}
}

// FromVision converts a service response into a Result. The service's own
// resistance and formatted value are used as given; bands are only
// capitalised and confidence is clamped to 0..100.
func FromVision(resp VisionResponse) Result {
	names := make([]string, len(resp.Bands))
	for i, b := range resp.Bands {
		names[i] = Capitalize(b)
	}
	return Result{
		Bands:          names,
		ResistanceOhms: resp.ResistanceOhms,
		FormattedValue: resp.FormattedValue,
		Confidence:     clampConfidence(resp.Confidence),
		IsManual:       false,
	}
}

// Capitalize title-cases a colour name for display: "violet" -> "Violet".
func Capitalize(name string) string {
	return cases.Title(language.English).String(strings.TrimSpace(name))
}

func clampConfidence(c float64) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return int(c + 0.5)
	}
}

// Quality classifies the result for display.
func (r Result) Quality() Quality {
	switch {
	case r.IsManual:
		return QualityManual
	case r.Confidence >= highPrecisionThreshold:
		return QualityHighPrecision
	case r.Confidence >= verifyThreshold:
		return QualityVerify
	default:
		return QualityLow
	}
}

// DisplayValue is the formatted value with the ohm sign.
func (r Result) DisplayValue() string {
	return r.FormattedValue + colorcode.Unit
}

// Summary renders the calculation line, e.g. "Brown Black × Red → 1k".
func (r Result) Summary() string {
	var b strings.Builder
	switch {
	case len(r.Bands) >= colorcode.SequenceLength:
		b.WriteString(r.Bands[0])
		b.WriteString(" ")
		b.WriteString(r.Bands[1])
		b.WriteString(" × ")
		b.WriteString(r.Bands[2])
	default:
		b.WriteString(strings.Join(r.Bands, " "))
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString("→ ")
	b.WriteString(r.FormattedValue)
	return b.String()
}
