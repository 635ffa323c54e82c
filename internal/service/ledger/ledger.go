// Package ledger moves money between debit balances: deposits, withdrawals and transfers.
// Every operation is one store transaction: balance change and its ledger record commit together.
package ledger

import (
	"context"
	"errors"
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

type Service struct {
	storage repository.Storage
	hasher  auth.SecretHasher
	events  events.Publisher
	logger  logger.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(storage repository.Storage, hasher auth.SecretHasher, publisher events.Publisher, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		hasher:  hasher,
		events:  publisher,
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deposit money to the account
// Knowing the card number is enough: secret is not required to put money in
func (s *Service) Deposit(ctx context.Context, cardNumber string, amount decimal.Decimal, notes string) (models.TransactionResult, error) {
	var result models.TransactionResult

	requested := amount
	amount = money.Round(amount)
	// Zero is accepted only when asked for, sub-cent amounts are not
	if amount.IsNegative() || (amount.IsZero() && !requested.IsZero()) {
		return result, fmt.Errorf("deposit amount %s: %w", requested, apperrors.ErrInvalidArgument)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		account, err := storage.Account().GetAccountByCardNumber(ctx, cardNumber, true)
		if err != nil {
			return err
		}

		account.Credit(amount)
		account, err = storage.Account().UpdateAccount(ctx, account)
		if err != nil {
			return err
		}

		t, err := storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   account.ID,
			UserID:      account.UserID,
			ProcessedAt: s.now(),
			Type:        models.TransactionTypeDeposit,
			Amount:      amount,
			Notes:       s.notesOrDefault(notes, "Deposit", amount),
		})
		if err != nil {
			return err
		}

		result = models.TransactionResult{TransactionID: t.ID, Amount: amount, Balance: account.Balance}
		return nil
	})

	return result, err
}

// Withdraw money from the account
// Unknown card and wrong secret are both reported as apperrors.ErrAuthFailed
func (s *Service) Withdraw(ctx context.Context, cardNumber string, secret string, amount decimal.Decimal, notes string) (models.TransactionResult, error) {
	var result models.TransactionResult

	amount = money.Round(amount)
	if !amount.IsPositive() {
		return result, fmt.Errorf("withdraw amount %s: %w", money.Format(amount), apperrors.ErrInvalidArgument)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		account, err := s.authenticate(ctx, storage, cardNumber, secret)
		if err != nil {
			return err
		}
		account, err = storage.Account().GetAccountByID(ctx, account.ID, true)
		if err != nil {
			return err
		}

		if !account.IsActive {
			return fmt.Errorf("withdraw from %s: %w", money.MaskCardNumber(cardNumber), apperrors.ErrFrozen)
		}

		if err := account.Debit(amount); err != nil {
			return err
		}
		account, err = storage.Account().UpdateAccount(ctx, account)
		if err != nil {
			return err
		}

		t, err := storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   account.ID,
			UserID:      account.UserID,
			ProcessedAt: s.now(),
			Type:        models.TransactionTypeWithdraw,
			Amount:      amount,
			Notes:       s.notesOrDefault(notes, "Withdraw", amount),
		})
		if err != nil {
			return err
		}

		result = models.TransactionResult{TransactionID: t.ID, Amount: amount, Balance: account.Balance}
		return nil
	})

	return result, err
}

type TransferParams struct {
	FromCard string
	Secret   string
	ToCard   string
	Amount   decimal.Decimal
	Notes    string
}

// Transfer amount plus fee from caller's card to any other card
func (s *Service) Transfer(ctx context.Context, callerID uuid.UUID, p TransferParams) (models.TransferReceipt, error) {
	var receipt models.TransferReceipt

	amount := money.Round(p.Amount)
	if !amount.IsPositive() {
		return receipt, fmt.Errorf("transfer amount %s: %w", money.Format(amount), apperrors.ErrInvalidArgument)
	}
	fee := money.TransferFee(amount)
	total := amount.Add(fee)

	var from, to models.Account
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		// Secret hash never changes, so check it before taking any lock
		_, err := s.authenticate(ctx, storage, p.FromCard, p.Secret)
		if err != nil {
			return err
		}

		accounts, err := storage.Account().LockAccounts(ctx, p.FromCard, p.ToCard)
		if err != nil {
			return err
		}
		var fromFound, toFound bool
		for _, a := range accounts {
			if a.CardNumber == p.FromCard {
				from, fromFound = a, true
			}
			if a.CardNumber == p.ToCard {
				to, toFound = a, true
			}
		}

		switch {
		case !fromFound:
			return apperrors.ErrAuthFailed
		case !toFound:
			return fmt.Errorf("transfer destination %s: %w", money.MaskCardNumber(p.ToCard), apperrors.ErrAccountNotFound)
		case from.UserID != callerID:
			return fmt.Errorf("card %s belongs to another user: %w", money.MaskCardNumber(p.FromCard), apperrors.ErrForbidden)
		case p.FromCard == p.ToCard:
			return fmt.Errorf("transfer to the same card: %w", apperrors.ErrInvalidArgument)
		case !from.IsActive:
			return fmt.Errorf("transfer from %s: %w", money.MaskCardNumber(p.FromCard), apperrors.ErrFrozen)
		}

		if err := from.Debit(total); err != nil {
			return fmt.Errorf("transfer needs %s including fee %s: %w", money.Format(total), money.Format(fee), err)
		}
		to.Credit(amount)

		if from, err = storage.Account().UpdateAccount(ctx, from); err != nil {
			return err
		}
		if to, err = storage.Account().UpdateAccount(ctx, to); err != nil {
			return err
		}

		now := s.now()
		out, err := storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   from.ID,
			UserID:      from.UserID,
			ProcessedAt: now,
			Type:        models.TransactionTypeTransfer,
			Amount:      total,
			Notes:       fmt.Sprintf("Transfer to %s%s (fee %s)", money.MaskCardNumber(to.CardNumber), noteSuffix(p.Notes), money.Format(fee)),
		})
		if err != nil {
			return err
		}

		_, err = storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   to.ID,
			UserID:      to.UserID,
			ProcessedAt: now,
			Type:        models.TransactionTypeDeposit,
			Amount:      amount,
			Notes:       fmt.Sprintf("Transfer from %s%s", money.MaskCardNumber(from.CardNumber), noteSuffix(p.Notes)),
		})
		if err != nil {
			return err
		}

		receipt = models.TransferReceipt{
			TransferID:   out.ID,
			FromCard:     money.MaskCardNumber(from.CardNumber),
			ToCard:       money.MaskCardNumber(to.CardNumber),
			Amount:       amount,
			Fee:          fee,
			BalanceAfter: from.Balance,
			Notes:        p.Notes,
			Timestamp:    now,
		}
		return nil
	})
	if err != nil {
		return receipt, err
	}

	events.Notify(ctx, s.events, s.logger, events.New(events.TransferCompleted, callerID, map[string]any{
		"transfer_id": receipt.TransferID,
		"from":        receipt.FromCard,
		"to":          receipt.ToCard,
		"to_user_id":  to.UserID,
		"amount":      money.Format(amount),
		"fee":         money.Format(fee),
	}))

	return receipt, nil
}

// Transactions of every user's account, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return s.storage.Transaction().ListTransactions(ctx, repository.ListTransactionsOpts{UserID: &userID})
}

// Transactions of the single account, newest first
// Caller has to own the account
func (s *Service) AccountHistory(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) ([]models.Transaction, error) {
	account, err := s.storage.Account().GetAccountByID(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	if account.UserID != callerID {
		return nil, fmt.Errorf("account %s belongs to another user: %w", accountID, apperrors.ErrForbidden)
	}

	return s.storage.Transaction().ListTransactions(ctx, repository.ListTransactionsOpts{AccountID: &accountID})
}

func (s *Service) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	return s.storage.Account().ListAccounts(ctx, repository.ListAccountsOpts{UserID: &userID})
}

// Freeze (active=false) or unfreeze any account
// Setting the state the account already has is a no-op
func (s *Service) SetActive(ctx context.Context, cardNumber string, active bool) (models.Account, error) {
	var account models.Account
	var changed bool

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		account, err = storage.Account().GetAccountByCardNumber(ctx, cardNumber, true)
		if err != nil {
			return err
		}
		if account.IsActive == active {
			return nil
		}

		account.IsActive = active
		account, err = storage.Account().UpdateAccount(ctx, account)
		changed = err == nil
		return err
	})
	if err != nil {
		return account, err
	}

	if changed {
		typ := events.AccountFrozen
		if active {
			typ = events.AccountUnfrozen
		}
		s.logger.Info("account state changed", "card", money.MaskCardNumber(cardNumber), "active", active)
		events.Notify(ctx, s.events, s.logger, events.New(typ, account.UserID, map[string]any{
			"account_id": account.ID,
			"card":       money.MaskCardNumber(account.CardNumber),
		}))
	}

	return account, nil
}

// Find account and check its secret
// Unknown card number is reported the same way as a wrong secret
func (s *Service) authenticate(ctx context.Context, storage repository.Storage, cardNumber string, secret string) (models.Account, error) {
	account, err := storage.Account().GetAccountByCardNumber(ctx, cardNumber, false)
	switch {
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return account, apperrors.ErrAuthFailed
	case err != nil:
		return account, err
	}

	if err := s.hasher.Compare(account.SecretHash, secret); err != nil {
		return account, apperrors.ErrAuthFailed
	}
	return account, nil
}

func (s *Service) notesOrDefault(notes string, operation string, amount decimal.Decimal) string {
	if notes != "" {
		return notes
	}
	return fmt.Sprintf("%s %s %s", s.now().Format("2006-01-02 15:04"), operation, money.Format(amount))
}

func noteSuffix(notes string) string {
	if notes == "" {
		return ""
	}
	return " - " + notes
}
