package loan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
	"github.com/nkiryanov/ledgerbank/internal/money"
)

var (
	baseScore = decimal.NewFromInt(700)
	maxScore  = decimal.NewFromInt(850)
	hundred   = decimal.NewFromInt(100)
	twelve    = decimal.NewFromInt(12)
	cent      = decimal.RequireFromString("0.01")
)

// CreditScore estimates borrower reliability in range [700, 850]
//
//	income:  min(100, income/1000*10)
//	debt:    max(0, 100 - debt/income*200)
//	request: max(0, 100 - max(0, requested/income - 10)*10)
//
// Without positive income every component is zero
func CreditScore(monthlyIncome, existingDebt, requestedAmount decimal.Decimal) int {
	if !monthlyIncome.IsPositive() {
		return int(baseScore.IntPart())
	}

	incomeScore := decimal.Min(hundred, monthlyIncome.Div(decimal.NewFromInt(1000)).Mul(decimal.NewFromInt(10)))

	debtRatio := existingDebt.Div(monthlyIncome)
	debtScore := decimal.Max(decimal.Zero, hundred.Sub(debtRatio.Mul(decimal.NewFromInt(200))))

	requestRatio := requestedAmount.Div(monthlyIncome)
	requestScore := decimal.Max(decimal.Zero, hundred.Sub(decimal.Max(decimal.Zero, requestRatio.Sub(decimal.NewFromInt(10))).Mul(decimal.NewFromInt(10))))

	score := decimal.Min(maxScore, baseScore.Add(incomeScore).Add(debtScore).Add(requestScore))
	return int(score.Round(0).IntPart())
}

// MonthlyPayment of annuity loan rounded to cents
//
//	payment = principal * r*(1+r)^n / ((1+r)^n - 1), r = annualRate/12
//
// Zero rate means the principal is split evenly
// Payment is never below one cent, so every loan can be paid off
func MonthlyPayment(principal, annualRate decimal.Decimal, months int) (decimal.Decimal, error) {
	switch {
	case months <= 0:
		return decimal.Zero, fmt.Errorf("loan term %d months: %w", months, apperrors.ErrInvalidArgument)
	case !principal.IsPositive():
		return decimal.Zero, fmt.Errorf("loan principal %s: %w", money.Format(principal), apperrors.ErrInvalidArgument)
	case annualRate.IsNegative():
		return decimal.Zero, fmt.Errorf("interest rate %s: %w", annualRate, apperrors.ErrInvalidArgument)
	case annualRate.IsZero():
		return atLeastCent(principal.Div(decimal.NewFromInt(int64(months)))), nil
	}

	r := annualRate.Div(twelve)
	growth := decimal.NewFromInt(1)
	for range months {
		growth = growth.Mul(decimal.NewFromInt(1).Add(r))
	}

	payment := principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return atLeastCent(payment), nil
}

func atLeastCent(payment decimal.Decimal) decimal.Decimal {
	payment = money.Round(payment)
	if payment.LessThan(cent) {
		return cent
	}
	return payment
}
