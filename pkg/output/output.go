// Package output renders readings, history and the colour table for the
// command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/labddb/resistorlens/internal/colorcode"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/reading"
)

// Format selects how results are written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json or yaml, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q, use table, json or yaml", s)
	}
}

// View is the flattened form of a reading used for json and yaml output.
type View struct {
	ID             string         `json:"id,omitempty" yaml:"id,omitempty"`
	RecordedAt     *time.Time     `json:"recorded_at,omitempty" yaml:"recorded_at,omitempty"`
	Source         history.Source `json:"source,omitempty" yaml:"source,omitempty"`
	Bands          []string       `json:"bands" yaml:"bands"`
	ResistanceOhms float64        `json:"resistance_ohms" yaml:"resistance_ohms"`
	FormattedValue string         `json:"formatted_value" yaml:"formatted_value"`
	DisplayValue   string         `json:"display_value" yaml:"display_value"`
	Confidence     int            `json:"confidence" yaml:"confidence"`
	IsManual       bool           `json:"is_manual" yaml:"is_manual"`
	Quality        string         `json:"quality" yaml:"quality"`
	Usage          *int64         `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// NewView flattens a Result. Use the Entry variant for recorded readings.
func NewView(r reading.Result) View {
	return View{
		Bands:          r.Bands,
		ResistanceOhms: r.ResistanceOhms,
		FormattedValue: r.FormattedValue,
		DisplayValue:   r.DisplayValue(),
		Confidence:     r.Confidence,
		IsManual:       r.IsManual,
		Quality:        string(r.Quality()),
	}
}

// NewEntryView flattens a history entry.
func NewEntryView(e history.Entry) View {
	v := NewView(e.Result)
	v.ID = e.ID.String()
	recorded := e.RecordedAt
	v.RecordedAt = &recorded
	v.Source = e.Source
	return v
}

var (
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(12)
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7a7f87"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// WriteView writes a single reading.
func WriteView(w io.Writer, v View, f Format) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(v)
	}

	lines := []string{
		labelStyle.Render("Bands") + swatches(v.Bands) + " " + strings.Join(v.Bands, " "),
		labelStyle.Render("Resistance") + valueStyle.Render(v.DisplayValue) +
			mutedStyle.Render(fmt.Sprintf(" (%s Ω)", strconv.FormatFloat(v.ResistanceOhms, 'f', -1, 64))),
		labelStyle.Render("Quality") + fmt.Sprintf("%s (%d%%)", v.Quality, v.Confidence),
	}
	if v.Source != "" {
		lines = append(lines, labelStyle.Render("Source")+string(v.Source))
	}
	if v.Usage != nil {
		lines = append(lines, labelStyle.Render("Usage")+strconv.FormatInt(*v.Usage, 10))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// WriteHistory writes history entries, most recent first.
func WriteHistory(w io.Writer, entries []history.Entry, f Format) error {
	views := make([]View, 0, len(entries))
	for _, e := range entries {
		views = append(views, NewEntryView(e))
	}

	switch f {
	case FormatJSON:
		return writeJSON(w, views)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(views)
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No readings yet.")
		return err
	}

	t := newTable("#", "RECORDED", "SOURCE", "BANDS", "VALUE", "QUALITY")
	for i, v := range views {
		t.Row(
			strconv.Itoa(i+1),
			v.RecordedAt.Local().Format(time.DateTime),
			string(v.Source),
			strings.Join(v.Bands, " "),
			v.DisplayValue,
			fmt.Sprintf("%s (%d%%)", v.Quality, v.Confidence),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteColors writes the colour table.
func WriteColors(w io.Writer, colors []colorcode.Color) error {
	t := newTable("", "COLOR", "DIGIT", "MULTIPLIER", "TOLERANCE")
	for _, c := range colors {
		digit := "-"
		if d, ok := c.Digit(); ok {
			digit = strconv.Itoa(d)
		}
		tolerance, _ := c.Tolerance()
		t.Row(
			swatch(c),
			c.DisplayName(),
			digit,
			"×"+colorcode.Format(c.Multiplier()),
			tolerance,
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func swatch(c colorcode.Color) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  ")
}

func swatches(names []string) string {
	var b strings.Builder
	for _, name := range names {
		c, err := colorcode.Lookup(name)
		if err != nil {
			continue
		}
		b.WriteString(swatch(c))
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
