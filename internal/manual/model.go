// Package manual implements the manual band picker: a pure reducer over the
// three selected bands plus a projection into a reading.Result.
package manual

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/labddb/resistorlens/internal/colorcode"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/reading"
)

var (
	// ErrInvalidSlot is returned for a slot outside 0..2.
	ErrInvalidSlot = errors.NewStd("invalid band slot")
	// ErrOptionNotOffered is returned when a colour is not selectable in a slot.
	ErrOptionNotOffered = errors.NewStd("color not offered for slot")
)

// Slot identifies one of the three editable bands.
type Slot int

const (
	SlotDigit1 Slot = iota
	SlotDigit2
	SlotMultiplier
)

// Valid reports whether s names one of the three bands.
func (s Slot) Valid() bool {
	return s >= SlotDigit1 && s <= SlotMultiplier
}

func (s Slot) String() string {
	switch s {
	case SlotDigit1:
		return "band1"
	case SlotDigit2:
		return "band2"
	case SlotMultiplier:
		return "multiplier"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// ParseSlot accepts a slot index ("0".."2") or name ("band1", "band2", "multiplier").
func ParseSlot(s string) (Slot, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for slot := SlotDigit1; slot <= SlotMultiplier; slot++ {
		if s == slot.String() || s == strconv.Itoa(int(slot)) {
			return slot, nil
		}
	}
	return 0, errors.New(fmt.Errorf("%w: %q", ErrInvalidSlot, s)).
		Component("manual").
		Category(errors.CategoryValidation).
		Context("slot", s).
		Build()
}

// State is the picker's current selection.
type State struct {
	Bands [3]colorcode.Color `json:"bands"`
}

// Initial returns brown, black, red (1kΩ).
func Initial() State {
	return State{Bands: [3]colorcode.Color{colorcode.Brown, colorcode.Black, colorcode.Red}}
}

// Edit replaces the colour in one slot.
type Edit struct {
	Slot  Slot            `json:"slot"`
	Color colorcode.Color `json:"color"`
}

// Reduce applies edit to s and returns the new state. It only checks that
// the slot exists; colour validity is left to Project so that an invalid
// digit band surfaces as colorcode.ErrInvalidDigitBand.
func Reduce(s State, edit Edit) (State, error) {
	if !edit.Slot.Valid() {
		return s, errors.New(fmt.Errorf("%w: %d", ErrInvalidSlot, int(edit.Slot))).
			Component("manual").
			Category(errors.CategoryValidation).
			Context("slot", int(edit.Slot)).
			Build()
	}
	s.Bands[edit.Slot] = edit.Color
	return s, nil
}

// Project decodes the state into a manual Result.
func Project(s State) (reading.Result, error) {
	ohms, err := colorcode.DecodeColors(s.Bands[SlotDigit1], s.Bands[SlotDigit2], s.Bands[SlotMultiplier])
	if err != nil {
		return reading.Result{}, err
	}
	return reading.NewManual(s.Bands[:], ohms), nil
}

// Options lists the colours the picker offers for slot: the ten digit
// colours for the digit slots and all twelve for the multiplier.
func Options(slot Slot) []colorcode.Color {
	switch slot {
	case SlotDigit1, SlotDigit2:
		return colorcode.DigitColors()
	case SlotMultiplier:
		return colorcode.MultiplierColors()
	default:
		return nil
	}
}

// Offered reports whether c is selectable in slot.
func Offered(slot Slot, c colorcode.Color) bool {
	return slices.Contains(Options(slot), c)
}
