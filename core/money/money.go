// Package money holds the USD and BCH arithmetic shared by the catalog, cart,
// checkout and treasury packages. All rounding is half away from zero on the
// decimal representation of the value so 1.005 rounds to 1.01.
package money

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// USDPlaces is the precision of fiat amounts.
	USDPlaces = 2
	// BCHPlaces is the precision of BCH amounts.
	BCHPlaces = 4
)

// Round rounds value to the given number of decimal places. NaN and infinite
// values are returned unchanged.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	out, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return out
}

// RoundUSD rounds to cents.
func RoundUSD(value float64) float64 { return Round(value, USDPlaces) }

// RoundBCH rounds to four decimal places.
func RoundBCH(value float64) float64 { return Round(value, BCHPlaces) }

// ToBch converts a USD amount at the supplied BCH/USD rate. A non-positive rate
// yields zero.
func ToBch(usd, rate float64) float64 {
	if rate <= 0 || math.IsNaN(rate) {
		return 0
	}
	quotient := decimal.NewFromFloat(usd).DivRound(decimal.NewFromFloat(rate), 16)
	out, _ := quotient.Round(BCHPlaces).Float64()
	return out
}

// Mul multiplies two amounts and rounds the product to places.
func Mul(a, b float64, places int32) float64 {
	out, _ := decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(places).Float64()
	return out
}

// Sum adds the values exactly and rounds the total to places.
func Sum(values []float64, places int32) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	out, _ := total.Round(places).Float64()
	return out
}

// Add adds b to a and rounds the result to places.
func Add(a, b float64, places int32) float64 {
	out, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(places).Float64()
	return out
}

// Sub subtracts b from a and rounds the result to places.
func Sub(a, b float64, places int32) float64 {
	out, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(places).Float64()
	return out
}

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, value))
}

// Finite reports whether value is neither NaN nor infinite.
func Finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders value as a dollar string with thousands separators.
func FormatUSD(value float64) string {
	rounded := RoundUSD(value)
	if rounded < 0 {
		return usdPrinter.Sprintf("-$%.2f", -rounded)
	}
	return usdPrinter.Sprintf("$%.2f", rounded)
}

// FormatBCH renders value with four decimals and the BCH suffix.
func FormatBCH(value float64) string {
	return usdPrinter.Sprintf("%.4f BCH", RoundBCH(value))
}
