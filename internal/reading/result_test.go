package reading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labddb/resistorlens/internal/colorcode"
)

func TestNewManual(t *testing.T) {
	r := NewManual([]colorcode.Color{colorcode.Brown, colorcode.Black, colorcode.Red}, 1000)

	assert.Equal(t, []string{"Brown", "Black", "Red"}, r.Bands)
	assert.Equal(t, "1k", r.FormattedValue)
	assert.Equal(t, ManualConfidence, r.Confidence)
	assert.True(t, r.IsManual)
	assert.Equal(t, QualityManual, r.Quality())
	assert.Equal(t, "Brown Black × Red → 1k", r.Summary())
	assert.Equal(t, "1kΩ", r.DisplayValue())
}

func TestFromVisionTrustsServiceValue(t *testing.T) {
	// The service normalised the reading to an E24 value; it must not be
	// recomputed from the bands.
	r := FromVision(VisionResponse{
		Bands:          []string{"yellow", "VIOLET", "red"},
		ResistanceOhms: 4700,
		FormattedValue: "4.7k",
		Confidence:     87.6,
	})

	assert.Equal(t, []string{"Yellow", "Violet", "Red"}, r.Bands)
	assert.InDelta(t, 4700.0, r.ResistanceOhms, 0)
	assert.Equal(t, "4.7k", r.FormattedValue)
	assert.Equal(t, 88, r.Confidence)
	assert.False(t, r.IsManual)

	mismatch := FromVision(VisionResponse{
		Bands:          []string{"brown", "black", "red"},
		ResistanceOhms: 1200,
		FormattedValue: "1.2k",
		Confidence:     70,
	})
	assert.Equal(t, "1.2k", mismatch.FormattedValue)
}

func TestFromVisionClampsConfidence(t *testing.T) {
	assert.Equal(t, 100, FromVision(VisionResponse{Confidence: 140}).Confidence)
	assert.Equal(t, 0, FromVision(VisionResponse{Confidence: -3}).Confidence)
}

func TestQuality(t *testing.T) {
	tests := []struct {
		confidence int
		manual     bool
		want       Quality
	}{
		{100, true, QualityManual},
		{10, true, QualityManual},
		{100, false, QualityHighPrecision},
		{80, false, QualityHighPrecision},
		{79, false, QualityVerify},
		{60, false, QualityVerify},
		{59, false, QualityLow},
		{0, false, QualityLow},
	}

	for _, tt := range tests {
		r := Result{Confidence: tt.confidence, IsManual: tt.manual}
		assert.Equal(t, tt.want, r.Quality(), "confidence=%d manual=%v", tt.confidence, tt.manual)
	}
}

func TestSummaryWithFewerBands(t *testing.T) {
	r := Result{Bands: []string{"Red", "Red"}, FormattedValue: "22"}
	assert.Equal(t, "Red Red → 22", r.Summary())

	assert.Equal(t, "→ 5", Result{FormattedValue: "5"}.Summary())
}

func TestResultJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(NewManual([]colorcode.Color{colorcode.Yellow, colorcode.Violet, colorcode.Gold}, 4.7))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"bands": ["Yellow", "Violet", "Gold"],
		"resistance_ohms": 4.7,
		"formatted_value": "4.7",
		"confidence": 100,
		"is_manual": true
	}`, string(data))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Grey", Capitalize(" grey "))
	assert.Equal(t, "Light Blue", Capitalize("light blue"))
	assert.Empty(t, Capitalize(""))
}
