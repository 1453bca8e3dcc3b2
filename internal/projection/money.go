package projection

import (
	"github.com/shopspring/decimal"
)

// roundCents rounds v to two decimal places, halves away from zero.
func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// sumCents adds vals exactly and rounds the total to cents.
func sumCents(vals []float64) float64 {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}
