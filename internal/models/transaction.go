package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit  = "DEPOSIT"
	TransactionTypeWithdraw = "WITHDRAW"
	TransactionTypeTransfer = "TRANSFER"
)

// Immutable ledger record. Amount is always a non negative magnitude
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	UserID      uuid.UUID
	ProcessedAt time.Time
	Type        string
	Amount      decimal.Decimal
	Notes       string
}

type TransactionResult struct {
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	Balance       decimal.Decimal
}

type TransferReceipt struct {
	TransferID   uuid.UUID
	FromCard     string // masked
	ToCard       string // masked
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	BalanceAfter decimal.Decimal
	Notes        string
	Timestamp    time.Time
}

type CreditResult struct {
	TransactionID      uuid.UUID
	Amount             decimal.Decimal
	AvailableCredit    decimal.Decimal
	OutstandingBalance decimal.Decimal
}

// Outcome of a batch sweep over credit accounts
type SweepResult struct {
	Scanned  int
	Affected int
	Failed   int
}
