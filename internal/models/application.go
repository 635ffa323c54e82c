package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ApplicationStatusPending  = "PENDING"
	ApplicationStatusApproved = "APPROVED"
	ApplicationStatusRejected = "REJECTED"
)

// Request to issue a new card
// Once processed (approved or rejected) it never changes again
type CardApplication struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	CreatedAt            time.Time
	CardType             string
	SecretHash           string
	RequestedCreditLimit *decimal.Decimal // credit cards only
	Reason               string
	Status               string
	ProcessedAt          *time.Time
	ProcessedBy          *uuid.UUID
	AdminNotes           string
	GeneratedCardNumber  string
}

func (a *CardApplication) IsPending() bool {
	return a.Status == ApplicationStatusPending
}

type LoanApplication struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	CreatedAt       time.Time
	RequestedAmount decimal.Decimal
	TermMonths      int
	Purpose         string
	MonthlyIncome   decimal.Decimal
	ExistingDebt    decimal.Decimal
	CreditScore     int
	Status          string

	// Set on approval
	ApprovedAmount *decimal.Decimal
	InterestRate   *decimal.Decimal
	MonthlyPayment *decimal.Decimal

	ProcessedAt *time.Time
	ProcessedBy *uuid.UUID
	AdminNotes  string
}

func (a *LoanApplication) IsPending() bool {
	return a.Status == ApplicationStatusPending
}
