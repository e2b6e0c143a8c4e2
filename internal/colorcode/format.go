package colorcode

import (
	"math"
	"strconv"
	"strings"
)

// Unit is the ohm sign appended by FormatWithUnit.
const Unit = "Ω"

type magnitude struct {
	divisor float64
	suffix  string
}

// Checked largest first; the first match wins.
var magnitudes = []magnitude{
	{divisor: 1_000_000, suffix: "M"},
	{divisor: 1_000, suffix: "k"},
}

// Format renders ohms compactly: 1000 is "1k", 1500 is "1.5k", 4700000 is
// "4.7M". Values below 1000 keep their natural decimal form ("2.5", "999").
// Inexact values round half up on the stored binary value, so 1250 is "1.3k"
// while 1150 (1.1499... once divided) is "1.1k".
func Format(ohms float64) string {
	for _, m := range magnitudes {
		if ohms < m.divisor {
			continue
		}
		// Exactness is judged on the undivided value.
		if math.Mod(ohms, m.divisor) == 0 {
			return strconv.FormatFloat(ohms/m.divisor, 'f', 0, 64) + m.suffix
		}
		return toFixed1(ohms/m.divisor) + m.suffix
	}
	return strconv.FormatFloat(ohms, 'f', -1, 64)
}

// FormatWithUnit is Format followed by the ohm sign.
func FormatWithUnit(ohms float64) string {
	return Format(ohms) + Unit
}

// exactDigits covers the full binary expansion of any float64 >= 1.
const exactDigits = 64

// toFixed1 renders a positive v with one decimal. strconv rounds ties to
// even, so the tie is decided here on the exact expansion instead.
func toFixed1(v float64) string {
	exact := strconv.FormatFloat(v, 'f', exactDigits, 64)
	dot := strings.IndexByte(exact, '.')
	tenths, _ := strconv.ParseFloat(exact[:dot+2], 64)
	if exact[dot+2] >= '5' {
		tenths += 0.1
	}
	return strconv.FormatFloat(tenths, 'f', 1, 64)
}
