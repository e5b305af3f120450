package core

import "github.com/shopspring/decimal"

// Round2 rounds to two decimal places, half away from zero. Every monetary
// or percent value persisted by this package goes through it so proportional
// splits never accumulate sub-cent residue.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
