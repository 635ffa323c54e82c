package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/repository"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, account_id, user_id, processed_at, type, amount, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, account_id, user_id, processed_at, type, amount, notes
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.ProcessedAt.IsZero() {
		t.ProcessedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createTransaction, t.ID, t.AccountID, t.UserID, t.ProcessedAt, t.Type, t.Amount, t.Notes)
	transaction, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return transaction, nil
	case isForeignKeyViolation(err):
		return transaction, fmt.Errorf("transaction for unknown account %s: %w", t.AccountID, apperrors.ErrAccountNotFound)
	default:
		return transaction, dbError(err)
	}
}

// seq breaks ties between transactions written in the same instant
const listTransactions = `-- name: ListTransactions
SELECT id, account_id, user_id, processed_at, type, amount, notes FROM transactions
WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::uuid IS NULL OR account_id = $2)
	AND (COALESCE(cardinality($3::text[]), 0) = 0 OR type = ANY($3))
ORDER BY processed_at DESC, seq DESC
LIMIT NULLIF($4::int, 0)
`

func (r *TransactionRepo) ListTransactions(ctx context.Context, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactions, opts.UserID, opts.AccountID, opts.Types, opts.Limit)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", dbError(err))
	}
	return transactions, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.UserID, &t.ProcessedAt, &t.Type, &t.Amount, &t.Notes)
	return t, err
}
