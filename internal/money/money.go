// Package money holds the pure monetary primitives shared by every ledger operation.
package money

import (
	"github.com/shopspring/decimal"
)

var (
	TransferFeeRate = decimal.RequireFromString("0.005")
	MinTransferFee  = decimal.RequireFromString("2.00")
	MaxTransferFee  = decimal.RequireFromString("50.00")
)

// Round amount to cents, half away from zero
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// TransferFee is 0.5% of amount clamped to [2.00, 50.00]
func TransferFee(amount decimal.Decimal) decimal.Decimal {
	fee := Round(amount.Mul(TransferFeeRate))
	if fee.LessThan(MinTransferFee) {
		return MinTransferFee
	}
	if fee.GreaterThan(MaxTransferFee) {
		return MaxTransferFee
	}
	return fee
}

// MaskCardNumber keeps only last four digits: "****1234"
// Strings shorter than four characters are returned as is
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}
	return "****" + cardNumber[len(cardNumber)-4:]
}

// Format amount the way it appears in transaction notes
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
