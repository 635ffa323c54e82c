// Package credit runs credit card facilities: spending against the limit, repayments
// and the two system sweeps (overdue freeze and monthly interest).
package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
	"github.com/nkiryanov/ledgerbank/internal/events"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/money"
	"github.com/nkiryanov/ledgerbank/internal/repository"
	"github.com/nkiryanov/ledgerbank/internal/service/auth"
)

const (
	PaymentMethodCash      = "CASH"
	PaymentMethodDebitCard = "DEBIT_CARD"
)

type Config struct {
	// Interest charged on outstanding balance once a month
	// If not set than default is used
	MonthlyInterestRate decimal.Decimal

	// Account with debt and no payment for this long is frozen
	// If not set than default is used
	OverdueAfter time.Duration
}

var (
	defaultMonthlyInterestRate = decimal.RequireFromString("0.015")
	defaultOverdueAfter        = 30 * 24 * time.Hour
)

type Service struct {
	storage repository.Storage
	hasher  auth.SecretHasher
	events  events.Publisher
	logger  logger.Logger
	cfg     Config
	now     func() time.Time
}

func NewService(cfg Config, storage repository.Storage, hasher auth.SecretHasher, publisher events.Publisher, log logger.Logger) *Service {
	if cfg.MonthlyInterestRate.IsZero() {
		cfg.MonthlyInterestRate = defaultMonthlyInterestRate
	}
	if cfg.OverdueAfter == 0 {
		cfg.OverdueAfter = defaultOverdueAfter
	}

	return &Service{
		storage: storage,
		hasher:  hasher,
		events:  publisher,
		logger:  log,
		cfg:     cfg,
		now:     time.Now,
	}
}

type SpendParams struct {
	CardNumber string
	CVV        string
	Amount     decimal.Decimal
	Notes      string
}

// Charge purchase to the credit card
func (s *Service) Spend(ctx context.Context, p SpendParams) (models.CreditResult, error) {
	var result models.CreditResult

	amount := money.Round(p.Amount)
	if !amount.IsPositive() {
		return result, fmt.Errorf("spend amount %s: %w", money.Format(amount), apperrors.ErrInvalidArgument)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		account, err := storage.Account().GetAccountByCardNumber(ctx, p.CardNumber, true)
		if err != nil {
			return err
		}

		switch {
		case !account.IsCredit():
			return fmt.Errorf("card %s is not a credit card: %w", money.MaskCardNumber(p.CardNumber), apperrors.ErrInvalidArgument)
		case s.hasher.Compare(account.CVVHash, p.CVV) != nil:
			return apperrors.ErrAuthFailed
		case !account.IsActive:
			return fmt.Errorf("spend on %s: %w", money.MaskCardNumber(p.CardNumber), apperrors.ErrFrozen)
		}

		if err := account.Spend(amount); err != nil {
			return err
		}
		if account, err = storage.Account().UpdateAccount(ctx, account); err != nil {
			return err
		}

		notes := p.Notes
		if notes == "" {
			notes = "Credit card purchase"
		}
		t, err := storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   account.ID,
			UserID:      account.UserID,
			ProcessedAt: s.now(),
			Type:        models.TransactionTypeWithdraw,
			Amount:      amount,
			Notes:       notes,
		})
		if err != nil {
			return err
		}

		result = creditResult(t.ID, amount, account)
		return nil
	})

	return result, err
}

type PaymentParams struct {
	CreditCard string
	Amount     decimal.Decimal
	Method     string

	// Required for PaymentMethodDebitCard only
	SourceDebitCard string
}

// Repay credit card debt in cash or from caller's debit card
// Amount above outstanding balance is reduced to it: overpayment never creates credit balance
func (s *Service) Payment(ctx context.Context, callerID uuid.UUID, p PaymentParams) (models.CreditResult, error) {
	var result models.CreditResult

	amount := money.Round(p.Amount)
	switch {
	case !amount.IsPositive():
		return result, fmt.Errorf("payment amount %s: %w", money.Format(amount), apperrors.ErrInvalidArgument)
	case p.Method != PaymentMethodCash && p.Method != PaymentMethodDebitCard:
		return result, fmt.Errorf("unknown payment method %q: %w", p.Method, apperrors.ErrInvalidArgument)
	case p.Method == PaymentMethodDebitCard && p.SourceDebitCard == "":
		return result, fmt.Errorf("debit card is required for %s payment: %w", p.Method, apperrors.ErrInvalidArgument)
	}

	cards := []string{p.CreditCard}
	if p.Method == PaymentMethodDebitCard {
		cards = append(cards, p.SourceDebitCard)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		accounts, err := storage.Account().LockAccounts(ctx, cards...)
		if err != nil {
			return err
		}
		byCard := make(map[string]models.Account, len(accounts))
		for _, a := range accounts {
			byCard[a.CardNumber] = a
		}

		credit, ok := byCard[p.CreditCard]
		switch {
		case !ok:
			return fmt.Errorf("credit card %s: %w", money.MaskCardNumber(p.CreditCard), apperrors.ErrAccountNotFound)
		case !credit.IsCredit():
			return fmt.Errorf("card %s is not a credit card: %w", money.MaskCardNumber(p.CreditCard), apperrors.ErrInvalidArgument)
		case credit.UserID != callerID:
			return fmt.Errorf("credit card %s belongs to another user: %w", money.MaskCardNumber(p.CreditCard), apperrors.ErrForbidden)
		}

		amount = decimal.Min(amount, credit.OutstandingBalance)
		if !amount.IsPositive() {
			return fmt.Errorf("nothing to pay on %s: %w", money.MaskCardNumber(p.CreditCard), apperrors.ErrInvalidArgument)
		}

		now := s.now()
		notes := "Credit card payment"

		if p.Method == PaymentMethodDebitCard {
			debit, ok := byCard[p.SourceDebitCard]
			switch {
			case !ok:
				return fmt.Errorf("debit card %s: %w", money.MaskCardNumber(p.SourceDebitCard), apperrors.ErrAccountNotFound)
			case debit.CardType != models.CardTypeDebit:
				return fmt.Errorf("card %s is not a debit card: %w", money.MaskCardNumber(p.SourceDebitCard), apperrors.ErrInvalidArgument)
			case debit.UserID != callerID:
				return fmt.Errorf("debit card %s belongs to another user: %w", money.MaskCardNumber(p.SourceDebitCard), apperrors.ErrForbidden)
			case !debit.IsActive:
				return fmt.Errorf("payment from %s: %w", money.MaskCardNumber(p.SourceDebitCard), apperrors.ErrFrozen)
			}

			if err := debit.Debit(amount); err != nil {
				return err
			}
			if _, err := storage.Account().UpdateAccount(ctx, debit); err != nil {
				return err
			}
			_, err = storage.Transaction().CreateTransaction(ctx, models.Transaction{
				AccountID:   debit.ID,
				UserID:      debit.UserID,
				ProcessedAt: now,
				Type:        models.TransactionTypeWithdraw,
				Amount:      amount,
				Notes:       "Credit card payment to " + money.MaskCardNumber(credit.CardNumber),
			})
			if err != nil {
				return err
			}
			notes += " from " + money.MaskCardNumber(debit.CardNumber)
		}

		credit.Repay(amount, now)
		if credit, err = storage.Account().UpdateAccount(ctx, credit); err != nil {
			return err
		}
		t, err := storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   credit.ID,
			UserID:      credit.UserID,
			ProcessedAt: now,
			Type:        models.TransactionTypeDeposit,
			Amount:      amount,
			Notes:       notes,
		})
		if err != nil {
			return err
		}

		result = creditResult(t.ID, amount, credit)
		return nil
	})

	return result, err
}

func creditResult(transactionID uuid.UUID, amount decimal.Decimal, a models.Account) models.CreditResult {
	return models.CreditResult{
		TransactionID:      transactionID,
		Amount:             amount,
		AvailableCredit:    a.AvailableCredit,
		OutstandingBalance: a.OutstandingBalance,
	}
}
