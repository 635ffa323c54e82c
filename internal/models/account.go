package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
)

const (
	CardTypeDebit  = "DEBIT"
	CardTypeCredit = "CREDIT"
)

// Account is a card owned by a single user
// Debit accounts keep Balance >= 0
// Credit accounts keep 0 <= OutstandingBalance and AvailableCredit = max(0, CreditLimit - OutstandingBalance)
type Account struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CreatedAt  time.Time
	CardNumber string
	SecretHash string
	CardType   string
	IsActive   bool
	Balance    decimal.Decimal

	// Credit cards only
	CVVHash            string
	CreditLimit        decimal.Decimal
	AvailableCredit    decimal.Decimal
	OutstandingBalance decimal.Decimal
	LastPaymentAt      *time.Time // nil if no payment has been made yet
}

func (a *Account) IsCredit() bool {
	return a.CardType == CardTypeCredit
}

// Credit adds amount to the balance
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// Debit subtracts amount from the balance
// Balance never goes below zero: ErrInsufficientFunds is returned and the account stays unchanged
func (a *Account) Debit(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return fmt.Errorf("balance %s is not enough for %s: %w", a.Balance.StringFixed(2), amount.StringFixed(2), apperrors.ErrInsufficientFunds)
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Spend charges amount against available credit
func (a *Account) Spend(amount decimal.Decimal) error {
	if amount.GreaterThan(a.AvailableCredit) {
		return fmt.Errorf("available credit %s is not enough for %s: %w", a.AvailableCredit.StringFixed(2), amount.StringFixed(2), apperrors.ErrCreditExceeded)
	}
	a.OutstandingBalance = a.OutstandingBalance.Add(amount)
	a.syncAvailableCredit()
	return nil
}

// Repay lowers the outstanding balance
// Amount has to be clamped by caller: outstanding balance never becomes negative
func (a *Account) Repay(amount decimal.Decimal, at time.Time) {
	a.OutstandingBalance = decimal.Max(decimal.Zero, a.OutstandingBalance.Sub(amount))
	a.LastPaymentAt = &at
	a.syncAvailableCredit()
}

// AddInterest increases debt. Debt is not capped by the credit limit
func (a *Account) AddInterest(interest decimal.Decimal) {
	a.OutstandingBalance = a.OutstandingBalance.Add(interest)
	a.syncAvailableCredit()
}

func (a *Account) syncAvailableCredit() {
	a.AvailableCredit = decimal.Max(decimal.Zero, a.CreditLimit.Sub(a.OutstandingBalance))
}

// Account with plain CVV returned right after the card is issued
// CVV is stored hashed, so this is the only moment it is known
type OpenedAccount struct {
	Account
	CVV string
}
