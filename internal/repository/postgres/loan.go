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

type LoanRepo struct {
	DB DBTX
}

const loanColumns = `id, user_id, application_id, created_at, principal, outstanding_balance, monthly_payment,
	interest_rate, total_terms, remaining_terms, next_payment_at, last_payment_at, is_active`

const createLoan = `-- name: CreateLoan
INSERT INTO loans (` + loanColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (application_id) DO NOTHING
RETURNING ` + loanColumns

func (r *LoanRepo) CreateLoan(ctx context.Context, l models.Loan) (models.Loan, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createLoan,
		l.ID, l.UserID, l.ApplicationID, l.CreatedAt, l.Principal, l.OutstandingBalance, l.MonthlyPayment,
		l.InterestRate, l.TotalTerms, l.RemainingTerms, l.NextPaymentAt, l.LastPaymentAt, l.IsActive,
	)
	loan, err := pgx.CollectOneRow(rows, rowToLoan)

	switch {
	case err == nil:
		return loan, nil
	case errors.Is(err, pgx.ErrNoRows):
		return loan, fmt.Errorf("loan for application %s exists: %w", l.ApplicationID, apperrors.ErrApplicationProcessed)
	case isForeignKeyViolation(err):
		return loan, apperrors.ErrApplicationNotFound
	default:
		return loan, dbError(err)
	}
}

const getLoan = `-- name: GetLoan
SELECT ` + loanColumns + ` FROM loans
WHERE id = $1
`

func (r *LoanRepo) GetLoan(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Loan, error) {
	rows, _ := r.DB.Query(ctx, withLock(getLoan, forUpdate), id)
	loan, err := pgx.CollectOneRow(rows, rowToLoan)

	switch {
	case err == nil:
		return loan, nil
	case errors.Is(err, pgx.ErrNoRows):
		return loan, apperrors.ErrLoanNotFound
	default:
		return loan, dbError(err)
	}
}

const updateLoan = `-- name: UpdateLoan
UPDATE loans SET
	outstanding_balance = $2,
	remaining_terms = $3,
	next_payment_at = $4,
	last_payment_at = $5,
	is_active = $6
WHERE id = $1
RETURNING ` + loanColumns

func (r *LoanRepo) UpdateLoan(ctx context.Context, l models.Loan) (models.Loan, error) {
	rows, _ := r.DB.Query(ctx, updateLoan, l.ID, l.OutstandingBalance, l.RemainingTerms, l.NextPaymentAt, l.LastPaymentAt, l.IsActive)
	loan, err := pgx.CollectOneRow(rows, rowToLoan)

	switch {
	case err == nil:
		return loan, nil
	case errors.Is(err, pgx.ErrNoRows):
		return loan, apperrors.ErrLoanNotFound
	default:
		return loan, dbError(err)
	}
}

const listLoans = `-- name: ListLoans
SELECT ` + loanColumns + ` FROM loans
WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::boolean IS NULL OR is_active = $2)
ORDER BY created_at DESC
`

func (r *LoanRepo) ListLoans(ctx context.Context, opts repository.ListLoansOpts) ([]models.Loan, error) {
	rows, _ := r.DB.Query(ctx, listLoans, opts.UserID, opts.IsActive)
	loans, err := pgx.CollectRows(rows, rowToLoan)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", dbError(err))
	}
	return loans, nil
}

func rowToLoan(row pgx.CollectableRow) (models.Loan, error) {
	var l models.Loan
	err := row.Scan(
		&l.ID, &l.UserID, &l.ApplicationID, &l.CreatedAt, &l.Principal, &l.OutstandingBalance, &l.MonthlyPayment,
		&l.InterestRate, &l.TotalTerms, &l.RemainingTerms, &l.NextPaymentAt, &l.LastPaymentAt, &l.IsActive,
	)
	return l, err
}
