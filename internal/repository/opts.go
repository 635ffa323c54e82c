package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Zero values mean "no filter"
type ListAccountsOpts struct {
	UserID   *uuid.UUID
	CardType string
	IsActive *bool

	// Only accounts with outstanding balance greater than the value
	OutstandingAbove *decimal.Decimal

	// Only accounts whose last payment happened before the moment
	// Accounts without any payment do not match
	LastPaymentBefore *time.Time
}

type ListTransactionsOpts struct {
	UserID    *uuid.UUID
	AccountID *uuid.UUID
	Types     []string
	Limit     int
}

type ListApplicationsOpts struct {
	UserID *uuid.UUID
	Status string
}

type ListLoansOpts struct {
	UserID   *uuid.UUID
	IsActive *bool
}
