package astro

import "github.com/shopspring/decimal"

// round2 rounds half away from zero to two decimals. Inputs here are
// never negative, so this is half-up.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
