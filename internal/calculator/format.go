package calculator

import (
	"math"
	"strconv"
)

// resultDecimals is the number of fractional digits kept for non-integer results.
const resultDecimals = 10

// FormatResult renders an evaluation result for the display. Whole numbers
// have no decimal point. Other values are rounded to ten decimal places and
// printed in their shortest form, so trailing zeros are dropped.
func FormatResult(v float64) string {
	if v == math.Trunc(v) {
		return formatNumber(v)
	}

	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', resultDecimals, 64), 64)
	if err != nil {
		return formatNumber(v)
	}

	return formatNumber(rounded)
}

// formatNumber prints v in its shortest round-tripping form. Magnitudes of
// 1e21 and above use exponent notation. Negative zero prints as "0".
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	if math.Abs(v) >= 1e21 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
