package core

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// InstallmentShare computes the slice of one allocation that lands on one
// installment: value/totalValue * installment value, with the percent
// recomputed from the rounded share rather than carried over from the input.
//
// Recomputing percent after rounding means two installments of the same
// allocation can disagree by a cent across the document total (double
// rounding). That drift is the observed behavior of the originating system
// and is kept, bounded by 0.01 per installment.
//
// A non-positive totalValue yields a zero share; a non-positive installment
// value yields a zero percent.
func InstallmentShare(allocValue, totalValue, installmentValue decimal.Decimal) (share, percent decimal.Decimal) {
	if totalValue.IsPositive() {
		share = Round2(allocValue.Div(totalValue).Mul(installmentValue))
	} else {
		share = decimal.Zero
	}
	if installmentValue.IsPositive() {
		percent = Round2(share.Div(installmentValue).Mul(oneHundred))
	} else {
		percent = decimal.Zero
	}
	return share, percent
}
