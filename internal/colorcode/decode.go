package colorcode

import (
	"fmt"
	"math"

	"github.com/labddb/resistorlens/internal/errors"
)

// Sentinel errors. The returned errors are categorised EnhancedErrors that
// keep these in their chain, so errors.Is works against them.
var (
	ErrUnknownColor          = errors.NewStd("unknown color")
	ErrInvalidDigitBand      = errors.NewStd("invalid digit band")
	ErrInvalidMultiplierBand = errors.NewStd("invalid multiplier band")
	ErrIncompleteSequence    = errors.NewStd("incomplete band sequence")
)

// Band positions within a sequence.
const (
	PositionDigit1     = 0
	PositionDigit2     = 1
	PositionMultiplier = 2

	// SequenceLength is the number of bands the decoder reads. A fourth
	// (tolerance) band is never decoded.
	SequenceLength = 3
)

// Decode converts three colour names into ohms:
// (digit(band1)*10 + digit(band2)) * multiplier(multiplier).
func Decode(band1, band2, multiplier string) (float64, error) {
	d1, err := lookupDigit(band1, PositionDigit1)
	if err != nil {
		return 0, err
	}
	d2, err := lookupDigit(band2, PositionDigit2)
	if err != nil {
		return 0, err
	}
	m, ok := find(multiplier)
	if !ok {
		return 0, errors.New(fmt.Errorf("%w: %w: %q", ErrInvalidMultiplierBand, ErrUnknownColor, multiplier)).
			Component("colorcode").
			Category(errors.CategoryValidation).
			Context("color", multiplier).
			Context("position", PositionMultiplier).
			Build()
	}
	return DecodeColors(d1, d2, m)
}

// DecodeColors is the typed form of Decode.
func DecodeColors(band1, band2, multiplier Color) (float64, error) {
	first, err := digitOf(band1, PositionDigit1)
	if err != nil {
		return 0, err
	}
	second, err := digitOf(band2, PositionDigit2)
	if err != nil {
		return 0, err
	}
	if !multiplier.Valid() {
		return 0, errors.New(fmt.Errorf("%w: %w: %s", ErrInvalidMultiplierBand, ErrUnknownColor, multiplier)).
			Component("colorcode").
			Category(errors.CategoryValidation).
			Context("position", PositionMultiplier).
			Build()
	}

	return scale(first*10+second, table[multiplier].exponent), nil
}

// DecodeSequence decodes a band list as delivered by a capture source.
// Only the first three names are used; a tolerance band at index 3 is ignored.
func DecodeSequence(names []string) (float64, error) {
	if len(names) < SequenceLength {
		return 0, errors.New(fmt.Errorf("%w: got %d of %d bands", ErrIncompleteSequence, len(names), SequenceLength)).
			Component("colorcode").
			Category(errors.CategoryValidation).
			Context("bands", len(names)).
			Build()
	}
	return Decode(names[PositionDigit1], names[PositionDigit2], names[PositionMultiplier])
}

// scale multiplies the significand by 10^exponent. Negative exponents divide
// by the matching power of ten so that 47 gold gives exactly 4.7.
func scale(significand, exponent int) float64 {
	if exponent >= 0 {
		return float64(significand) * math.Pow10(exponent)
	}
	return float64(significand) / math.Pow10(-exponent)
}

func lookupDigit(name string, position int) (Color, error) {
	c, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	if _, err := digitOf(c, position); err != nil {
		return 0, err
	}
	return c, nil
}

func digitOf(c Color, position int) (int, error) {
	d, ok := c.Digit()
	if !ok {
		return 0, errors.New(fmt.Errorf("%w: %s in position %d", ErrInvalidDigitBand, c, position+1)).
			Component("colorcode").
			Category(errors.CategoryValidation).
			Context("color", c.String()).
			Context("position", position).
			Build()
	}
	return d, nil
}
