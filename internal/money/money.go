// Package money converts between major-unit amounts (reais, as received from
// checkout callers) and the integer minor units (centavos) the gateways expect.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to integer cents, rounding half
// away from zero. 197.90 -> 19790.
func ToMinorUnits(major float64) int64 {
	return decimal.NewFromFloat(major).Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back to a major-unit float.
func FromMinorUnits(minor int64) float64 {
	f, _ := decimal.NewFromInt(minor).Div(hundred).Float64()
	return f
}

// RescaleHeuristic normalizes an amount whose unit is ambiguous. Postback
// payloads carry amounts sometimes in cents and sometimes in reais; values
// >= 1000 are assumed to be cents and divided by 100.
func RescaleHeuristic(amount float64) float64 {
	if amount >= 1000 {
		f, _ := decimal.NewFromFloat(amount).Div(hundred).Float64()
		return f
	}
	return amount
}
