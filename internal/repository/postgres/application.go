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

type ApplicationRepo struct {
	DB DBTX
}

const cardApplicationColumns = `id, user_id, created_at, card_type, secret_hash, requested_credit_limit, reason,
	status, processed_at, processed_by, admin_notes, generated_card_number`

const createCardApplication = `-- name: CreateCardApplication
INSERT INTO card_applications (` + cardApplicationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + cardApplicationColumns

func (r *ApplicationRepo) CreateCardApplication(ctx context.Context, a models.CardApplication) (models.CardApplication, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = models.ApplicationStatusPending
	}

	rows, _ := r.DB.Query(ctx, createCardApplication,
		a.ID, a.UserID, a.CreatedAt, a.CardType, a.SecretHash, a.RequestedCreditLimit, a.Reason,
		a.Status, a.ProcessedAt, a.ProcessedBy, a.AdminNotes, a.GeneratedCardNumber,
	)
	application, err := pgx.CollectOneRow(rows, rowToCardApplication)
	if err != nil {
		return application, dbError(err)
	}
	return application, nil
}

const getCardApplication = `-- name: GetCardApplication
SELECT ` + cardApplicationColumns + ` FROM card_applications
WHERE id = $1
`

func (r *ApplicationRepo) GetCardApplication(ctx context.Context, id uuid.UUID, forUpdate bool) (models.CardApplication, error) {
	rows, _ := r.DB.Query(ctx, withLock(getCardApplication, forUpdate), id)
	application, err := pgx.CollectOneRow(rows, rowToCardApplication)

	switch {
	case err == nil:
		return application, nil
	case errors.Is(err, pgx.ErrNoRows):
		return application, apperrors.ErrApplicationNotFound
	default:
		return application, dbError(err)
	}
}

const updateCardApplication = `-- name: UpdateCardApplication
UPDATE card_applications SET
	status = $2,
	processed_at = $3,
	processed_by = $4,
	admin_notes = $5,
	generated_card_number = $6
WHERE id = $1
RETURNING ` + cardApplicationColumns

func (r *ApplicationRepo) UpdateCardApplication(ctx context.Context, a models.CardApplication) (models.CardApplication, error) {
	rows, _ := r.DB.Query(ctx, updateCardApplication, a.ID, a.Status, a.ProcessedAt, a.ProcessedBy, a.AdminNotes, a.GeneratedCardNumber)
	application, err := pgx.CollectOneRow(rows, rowToCardApplication)

	switch {
	case err == nil:
		return application, nil
	case errors.Is(err, pgx.ErrNoRows):
		return application, apperrors.ErrApplicationNotFound
	default:
		return application, dbError(err)
	}
}

const listCardApplications = `-- name: ListCardApplications
SELECT ` + cardApplicationColumns + ` FROM card_applications
WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::text = '' OR status = $2)
ORDER BY created_at DESC
`

func (r *ApplicationRepo) ListCardApplications(ctx context.Context, opts repository.ListApplicationsOpts) ([]models.CardApplication, error) {
	rows, _ := r.DB.Query(ctx, listCardApplications, opts.UserID, opts.Status)
	applications, err := pgx.CollectRows(rows, rowToCardApplication)
	if err != nil {
		return nil, fmt.Errorf("list card applications: %w", dbError(err))
	}
	return applications, nil
}

func rowToCardApplication(row pgx.CollectableRow) (models.CardApplication, error) {
	var a models.CardApplication
	err := row.Scan(
		&a.ID, &a.UserID, &a.CreatedAt, &a.CardType, &a.SecretHash, &a.RequestedCreditLimit, &a.Reason,
		&a.Status, &a.ProcessedAt, &a.ProcessedBy, &a.AdminNotes, &a.GeneratedCardNumber,
	)
	return a, err
}

const loanApplicationColumns = `id, user_id, created_at, requested_amount, term_months, purpose, monthly_income,
	existing_debt, credit_score, status, approved_amount, interest_rate, monthly_payment,
	processed_at, processed_by, admin_notes`

const createLoanApplication = `-- name: CreateLoanApplication
INSERT INTO loan_applications (` + loanApplicationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING ` + loanApplicationColumns

func (r *ApplicationRepo) CreateLoanApplication(ctx context.Context, a models.LoanApplication) (models.LoanApplication, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = models.ApplicationStatusPending
	}

	rows, _ := r.DB.Query(ctx, createLoanApplication,
		a.ID, a.UserID, a.CreatedAt, a.RequestedAmount, a.TermMonths, a.Purpose, a.MonthlyIncome,
		a.ExistingDebt, a.CreditScore, a.Status, a.ApprovedAmount, a.InterestRate, a.MonthlyPayment,
		a.ProcessedAt, a.ProcessedBy, a.AdminNotes,
	)
	application, err := pgx.CollectOneRow(rows, rowToLoanApplication)
	if err != nil {
		return application, dbError(err)
	}
	return application, nil
}

const getLoanApplication = `-- name: GetLoanApplication
SELECT ` + loanApplicationColumns + ` FROM loan_applications
WHERE id = $1
`

func (r *ApplicationRepo) GetLoanApplication(ctx context.Context, id uuid.UUID, forUpdate bool) (models.LoanApplication, error) {
	rows, _ := r.DB.Query(ctx, withLock(getLoanApplication, forUpdate), id)
	application, err := pgx.CollectOneRow(rows, rowToLoanApplication)

	switch {
	case err == nil:
		return application, nil
	case errors.Is(err, pgx.ErrNoRows):
		return application, apperrors.ErrApplicationNotFound
	default:
		return application, dbError(err)
	}
}

const updateLoanApplication = `-- name: UpdateLoanApplication
UPDATE loan_applications SET
	status = $2,
	approved_amount = $3,
	interest_rate = $4,
	monthly_payment = $5,
	processed_at = $6,
	processed_by = $7,
	admin_notes = $8
WHERE id = $1
RETURNING ` + loanApplicationColumns

func (r *ApplicationRepo) UpdateLoanApplication(ctx context.Context, a models.LoanApplication) (models.LoanApplication, error) {
	rows, _ := r.DB.Query(ctx, updateLoanApplication,
		a.ID, a.Status, a.ApprovedAmount, a.InterestRate, a.MonthlyPayment, a.ProcessedAt, a.ProcessedBy, a.AdminNotes,
	)
	application, err := pgx.CollectOneRow(rows, rowToLoanApplication)

	switch {
	case err == nil:
		return application, nil
	case errors.Is(err, pgx.ErrNoRows):
		return application, apperrors.ErrApplicationNotFound
	default:
		return application, dbError(err)
	}
}

const listLoanApplications = `-- name: ListLoanApplications
SELECT ` + loanApplicationColumns + ` FROM loan_applications
WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::text = '' OR status = $2)
ORDER BY created_at DESC
`

func (r *ApplicationRepo) ListLoanApplications(ctx context.Context, opts repository.ListApplicationsOpts) ([]models.LoanApplication, error) {
	rows, _ := r.DB.Query(ctx, listLoanApplications, opts.UserID, opts.Status)
	applications, err := pgx.CollectRows(rows, rowToLoanApplication)
	if err != nil {
		return nil, fmt.Errorf("list loan applications: %w", dbError(err))
	}
	return applications, nil
}

func rowToLoanApplication(row pgx.CollectableRow) (models.LoanApplication, error) {
	var a models.LoanApplication
	err := row.Scan(
		&a.ID, &a.UserID, &a.CreatedAt, &a.RequestedAmount, &a.TermMonths, &a.Purpose, &a.MonthlyIncome,
		&a.ExistingDebt, &a.CreditScore, &a.Status, &a.ApprovedAmount, &a.InterestRate, &a.MonthlyPayment,
		&a.ProcessedAt, &a.ProcessedBy, &a.AdminNotes,
	)
	return a, err
}
