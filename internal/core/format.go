package core

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatSI abbreviates v to two significant digits with an SI prefix,
// e.g. 1234567 -> "1.2M", 300 -> "300", 0.5 -> "500m". Used for bar labels.
func FormatSI(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v == 0 {
		return "0.0"
	}

	r := roundSignificant(v, 2)
	scaled, prefix := humanize.ComputeSI(r)

	mag := int(math.Floor(math.Log10(math.Abs(r)) + 1e-9))
	intDigits := ((mag%3)+3)%3 + 1
	decimals := 2 - intDigits
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(scaled, 'f', decimals, 64) + prefix
}

func roundSignificant(v float64, digits int) float64 {
	mag := math.Floor(math.Log10(math.Abs(v)))
	factor := math.Pow(10, float64(digits-1)-mag)
	return math.Round(v*factor) / factor
}
