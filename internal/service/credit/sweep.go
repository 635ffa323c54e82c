package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/events"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/money"
	"github.com/nkiryanov/ledgerbank/internal/repository"
)

// Account state changed under the lock since it was selected
var errSkipped = errors.New("account no longer matches sweep")

// Freeze active credit accounts with debt and no payment for longer than OverdueAfter
// Accounts that never paid are not candidates
// Every account is processed in its own transaction, re-checked under the row lock
func (s *Service) FreezeOverdue(ctx context.Context, now time.Time) (models.SweepResult, error) {
	threshold := now.Add(-s.cfg.OverdueAfter)
	zero := decimal.Zero
	active := true

	candidates, err := s.storage.Account().ListAccounts(ctx, repository.ListAccountsOpts{
		CardType:          models.CardTypeCredit,
		IsActive:          &active,
		OutstandingAbove:  &zero,
		LastPaymentBefore: &threshold,
	})
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("overdue candidates: %w", err)
	}

	isOverdue := func(a models.Account) bool {
		return a.IsActive && a.OutstandingBalance.IsPositive() && a.LastPaymentAt != nil && a.LastPaymentAt.Before(threshold)
	}
	notes := fmt.Sprintf("Frozen: payment overdue for more than %d days", int(s.cfg.OverdueAfter.Hours()/24))

	freeze := func(storage repository.Storage, a models.Account) error {
		if !isOverdue(a) {
			return errSkipped
		}

		a.IsActive = false
		a, err := storage.Account().UpdateAccount(ctx, a)
		if err != nil {
			return err
		}

		_, err = storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   a.ID,
			UserID:      a.UserID,
			ProcessedAt: now,
			Type:        models.TransactionTypeWithdraw,
			Amount:      decimal.Zero,
			Notes:       notes,
		})
		return err
	}

	committed := func(a models.Account) {
		events.Notify(ctx, s.events, s.logger, events.New(events.AccountFrozen, a.UserID, map[string]any{
			"account_id": a.ID,
			"card":       money.MaskCardNumber(a.CardNumber),
			"reason":     "overdue",
		}))
	}

	return s.sweep(ctx, "freeze_overdue", candidates, freeze, committed)
}

// Charge monthly interest on every credit account with debt, frozen ones included
// Debt may exceed the credit limit, available credit never goes below zero
func (s *Service) AccrueInterest(ctx context.Context, now time.Time) (models.SweepResult, error) {
	zero := decimal.Zero

	candidates, err := s.storage.Account().ListAccounts(ctx, repository.ListAccountsOpts{
		CardType:         models.CardTypeCredit,
		OutstandingAbove: &zero,
	})
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("interest candidates: %w", err)
	}

	notes := fmt.Sprintf("Interest charge %s%% monthly", s.cfg.MonthlyInterestRate.Mul(decimal.NewFromInt(100)).String())

	return s.sweep(ctx, "accrue_interest", candidates, func(storage repository.Storage, a models.Account) error {
		interest := money.Round(a.OutstandingBalance.Mul(s.cfg.MonthlyInterestRate))
		if !interest.IsPositive() {
			return errSkipped
		}

		a.AddInterest(interest)
		_, err := storage.Account().UpdateAccount(ctx, a)
		if err != nil {
			return err
		}

		_, err = storage.Transaction().CreateTransaction(ctx, models.Transaction{
			AccountID:   a.ID,
			UserID:      a.UserID,
			ProcessedAt: now,
			Type:        models.TransactionTypeWithdraw,
			Amount:      interest,
			Notes:       notes,
		})
		return err
	}, nil)
}

// Apply fn to every candidate in a separate transaction with the account row locked
// committed (if set) is called for every account changed once its transaction is committed
// Failure of one account is logged and does not stop the sweep
func (s *Service) sweep(
	ctx context.Context,
	name string,
	candidates []models.Account,
	fn func(repository.Storage, models.Account) error,
	committed func(models.Account),
) (models.SweepResult, error) {
	result := models.SweepResult{Scanned: len(candidates)}
	log := s.logger.With("sweep", name)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := s.storage.InTx(ctx, func(storage repository.Storage) error {
			a, err := storage.Account().GetAccountByID(ctx, candidate.ID, true)
			if err != nil {
				return err
			}
			return fn(storage, a)
		})

		switch {
		case err == nil:
			result.Affected++
			if committed != nil {
				committed(candidate)
			}
		case errors.Is(err, errSkipped):
		default:
			result.Failed++
			log.Error("sweep account failed", "account_id", candidate.ID, "error", err)
		}
	}

	log.Info("sweep finished", "scanned", result.Scanned, "affected", result.Affected, "failed", result.Failed)
	return result, nil
}
