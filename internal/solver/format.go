package solver

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// displayPlaces is the rounding applied to floating-point results
const displayPlaces = 10

// FormatNumber renders v with at most ten decimal places and no trailing
// zeros, so 2.0000000000004 prints as "2".
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "undefined"
	}
	return decimal.NewFromFloat(v).Round(displayPlaces).String()
}

// formatRat renders an exact rational as an integer or "p/q"
func formatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.RatString()
}

// formatRatDecimal renders r as a rounded decimal, used for values
func formatRatDecimal(r *big.Rat) string {
	d, err := decimal.NewFromString(r.FloatString(displayPlaces))
	if err != nil {
		f, _ := r.Float64()
		return FormatNumber(f)
	}
	return d.String()
}

// formatComplex renders a numeric root, dropping a negligible imaginary part
func formatComplex(c complex128) string {
	re, im := real(c), imag(c)
	if math.Abs(im) < 1e-9 {
		return FormatNumber(re)
	}
	imText := FormatNumber(math.Abs(im)) + "*i"
	if FormatNumber(math.Abs(im)) == "1" {
		imText = "i"
	}
	if FormatNumber(re) == "0" {
		if im < 0 {
			return "-" + imText
		}
		return imText
	}
	if im < 0 {
		return FormatNumber(re) + " - " + imText
	}
	return FormatNumber(re) + " + " + imText
}
