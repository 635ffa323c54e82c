package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Originated loan
// Exactly one loan per approved LoanApplication
type Loan struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	ApplicationID      uuid.UUID
	CreatedAt          time.Time
	Principal          decimal.Decimal
	OutstandingBalance decimal.Decimal
	MonthlyPayment     decimal.Decimal
	InterestRate       decimal.Decimal // annual, e.g. 0.12
	TotalTerms         int
	RemainingTerms     int
	NextPaymentAt      *time.Time // nil once the loan is settled
	LastPaymentAt      *time.Time
	IsActive           bool
}

type LoanPaymentResult struct {
	LoanID             uuid.UUID
	Amount             decimal.Decimal
	OutstandingBalance decimal.Decimal
	RemainingTerms     int
	NextPaymentAt      *time.Time
	Settled            bool
}
