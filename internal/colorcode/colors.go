// Package colorcode decodes the colour bands of axial resistors.
//
// The table is closed: exactly twelve colours are recognised and every
// lookup goes through Lookup, which fails with ErrUnknownColor instead of
// returning a zero value.
package colorcode

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/labddb/resistorlens/internal/errors"
)

// Color is one of the twelve recognised band colours.
type Color uint8

const (
	Black Color = iota
	Brown
	Red
	Orange
	Yellow
	Green
	Blue
	Violet
	Grey
	White
	Gold
	Silver

	numColors
)

// noDigit marks colours that may not appear in a digit position.
const noDigit = -1

type entry struct {
	name      string
	digit     int
	exponent  int // multiplier is 10^exponent
	tolerance string
	hex       string
}

var table = [numColors]entry{
	Black:  {name: "black", digit: 0, exponent: 0, hex: "#000000"},
	Brown:  {name: "brown", digit: 1, exponent: 1, tolerance: "1%", hex: "#8b4513"},
	Red:    {name: "red", digit: 2, exponent: 2, tolerance: "2%", hex: "#ff0000"},
	Orange: {name: "orange", digit: 3, exponent: 3, hex: "#ffa500"},
	Yellow: {name: "yellow", digit: 4, exponent: 4, hex: "#ffff00"},
	Green:  {name: "green", digit: 5, exponent: 5, tolerance: "0.5%", hex: "#008000"},
	Blue:   {name: "blue", digit: 6, exponent: 6, tolerance: "0.25%", hex: "#0000ff"},
	Violet: {name: "violet", digit: 7, exponent: 7, tolerance: "0.1%", hex: "#ee82ee"},
	Grey:   {name: "grey", digit: 8, exponent: 8, tolerance: "0.05%", hex: "#808080"},
	White:  {name: "white", digit: 9, exponent: 9, hex: "#ffffff"},
	Gold:   {name: "gold", digit: noDigit, exponent: -1, tolerance: "5%", hex: "#ffd700"},
	Silver: {name: "silver", digit: noDigit, exponent: -2, tolerance: "10%", hex: "#c0c0c0"},
}

var byName = func() map[string]Color {
	m := make(map[string]Color, numColors)
	for c := range numColors {
		m[table[c].name] = c
	}
	return m
}()

// Lookup resolves a colour name case-insensitively. Surrounding whitespace is ignored.
func Lookup(name string) (Color, error) {
	if c, ok := find(name); ok {
		return c, nil
	}
	return 0, errors.New(fmt.Errorf("%w: %q", ErrUnknownColor, name)).
		Component("colorcode").
		Category(errors.CategoryColorLookup).
		Context("color", name).
		Build()
}

func find(name string) (Color, bool) {
	c, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Colors returns all twelve colours in canonical order.
func Colors() []Color {
	out := make([]Color, 0, numColors)
	for c := range numColors {
		out = append(out, c)
	}
	return out
}

// DigitColors returns the ten colours valid in a digit position.
func DigitColors() []Color {
	out := make([]Color, 0, numColors)
	for c := range numColors {
		if c.IsDigit() {
			out = append(out, c)
		}
	}
	return out
}

// MultiplierColors returns the colours valid in the multiplier position, which is all of them.
func MultiplierColors() []Color {
	return Colors()
}

// Valid reports whether c is one of the twelve colours.
func (c Color) Valid() bool {
	return c < numColors
}

// String returns the canonical lowercase name.
func (c Color) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
	return table[c].name
}

// DisplayName returns the capitalised name, e.g. "Violet".
func (c Color) DisplayName() string {
	return cases.Title(language.English).String(c.String())
}

// Digit returns the significant digit encoded by c. ok is false for gold and silver.
func (c Color) Digit() (digit int, ok bool) {
	if !c.Valid() || table[c].digit == noDigit {
		return 0, false
	}
	return table[c].digit, true
}

// IsDigit reports whether c may be used as a digit band.
func (c Color) IsDigit() bool {
	_, ok := c.Digit()
	return ok
}

// Multiplier returns the scale factor of c in the multiplier position.
func (c Color) Multiplier() float64 {
	if !c.Valid() {
		return 0
	}
	return math.Pow10(table[c].exponent)
}

// Tolerance returns the tolerance c denotes on a fourth band, e.g. "5%" for gold.
func (c Color) Tolerance() (string, bool) {
	if !c.Valid() || table[c].tolerance == "" {
		return "", false
	}
	return table[c].tolerance, true
}

// Hex returns the display swatch as "#rrggbb".
func (c Color) Hex() string {
	if !c.Valid() {
		return ""
	}
	return table[c].hex
}

// MarshalText encodes c as its canonical name.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColor, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts any spelling Lookup accepts.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := Lookup(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
