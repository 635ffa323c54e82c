package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/repository"
)

type AccountRepo struct {
	DB DBTX
}

const accountColumns = `id, user_id, created_at, card_number, secret_hash, card_type, is_active, balance,
	cvv_hash, credit_limit, available_credit, outstanding_balance, last_payment_at`

// Card number is unique: on conflict nothing is returned
const createAccount = `-- name: CreateAccount
INSERT INTO accounts (id, user_id, created_at, card_number, secret_hash, card_type, is_active, balance,
	cvv_hash, credit_limit, available_credit, outstanding_balance, last_payment_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (card_number) DO NOTHING
RETURNING ` + accountColumns

func (r *AccountRepo) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createAccount,
		a.ID, a.UserID, a.CreatedAt, a.CardNumber, a.SecretHash, a.CardType, a.IsActive, a.Balance,
		a.CVVHash, a.CreditLimit, a.AvailableCredit, a.OutstandingBalance, a.LastPaymentAt,
	)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrCardNumberTaken
	default:
		return account, dbError(err)
	}
}

const getAccountByCardNumber = `-- name: GetAccountByCardNumber
SELECT ` + accountColumns + ` FROM accounts
WHERE card_number = $1
`

func (r *AccountRepo) GetAccountByCardNumber(ctx context.Context, cardNumber string, forUpdate bool) (models.Account, error) {
	return r.getAccount(ctx, withLock(getAccountByCardNumber, forUpdate), cardNumber)
}

const getAccountByID = `-- name: GetAccountByID
SELECT ` + accountColumns + ` FROM accounts
WHERE id = $1
`

func (r *AccountRepo) GetAccountByID(ctx context.Context, accountID uuid.UUID, forUpdate bool) (models.Account, error) {
	return r.getAccount(ctx, withLock(getAccountByID, forUpdate), accountID)
}

func (r *AccountRepo) getAccount(ctx context.Context, query string, arg any) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, query, arg)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, dbError(err)
	}
}

// ORDER BY is applied before rows are locked, so locks are taken in card number order
const lockAccounts = `-- name: LockAccounts
SELECT ` + accountColumns + ` FROM accounts
WHERE card_number = ANY($1)
ORDER BY card_number
FOR UPDATE
`

func (r *AccountRepo) LockAccounts(ctx context.Context, cardNumbers ...string) ([]models.Account, error) {
	rows, _ := r.DB.Query(ctx, lockAccounts, cardNumbers)
	accounts, err := pgx.CollectRows(rows, rowToAccount)
	if err != nil {
		return nil, dbError(err)
	}
	return accounts, nil
}

const updateAccount = `-- name: UpdateAccount
UPDATE accounts SET
	is_active = $2,
	balance = $3,
	credit_limit = $4,
	available_credit = $5,
	outstanding_balance = $6,
	last_payment_at = $7
WHERE id = $1
RETURNING ` + accountColumns

func (r *AccountRepo) UpdateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, updateAccount,
		a.ID, a.IsActive, a.Balance, a.CreditLimit, a.AvailableCredit, a.OutstandingBalance, a.LastPaymentAt,
	)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, dbError(err)
	}
}

const listAccounts = `-- name: ListAccounts
SELECT ` + accountColumns + ` FROM accounts
WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::text = '' OR card_type = $2)
	AND ($3::boolean IS NULL OR is_active = $3)
	AND ($4::numeric IS NULL OR outstanding_balance > $4)
	AND ($5::timestamptz IS NULL OR last_payment_at < $5)
ORDER BY created_at, card_number
`

func (r *AccountRepo) ListAccounts(ctx context.Context, opts repository.ListAccountsOpts) ([]models.Account, error) {
	rows, _ := r.DB.Query(ctx, listAccounts, opts.UserID, opts.CardType, opts.IsActive, opts.OutstandingAbove, opts.LastPaymentBefore)
	accounts, err := pgx.CollectRows(rows, rowToAccount)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", dbError(err))
	}
	return accounts, nil
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.UserID, &a.CreatedAt, &a.CardNumber, &a.SecretHash, &a.CardType, &a.IsActive, &a.Balance,
		&a.CVVHash, &a.CreditLimit, &a.AvailableCredit, &a.OutstandingBalance, &a.LastPaymentAt,
	)
	return a, err
}

func withLock(query string, forUpdate bool) string {
	if forUpdate {
		return query + "FOR UPDATE\n"
	}
	return query
}
