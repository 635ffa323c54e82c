package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/ledgerbank/internal/models"
)

// Account repository interface
type AccountRepo interface {
	// Create account
	// If the card number is already used must return apperrors.ErrCardNumberTaken
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)

	// Get account by card number or id
	// forUpdate locks the row till the end of the current transaction
	// If account not found must return apperrors.ErrAccountNotFound
	GetAccountByCardNumber(ctx context.Context, cardNumber string, forUpdate bool) (models.Account, error)
	GetAccountByID(ctx context.Context, accountID uuid.UUID, forUpdate bool) (models.Account, error)

	// Lock accounts always in the same order (by card number) to avoid deadlocks
	// Unknown card numbers are skipped, so result may be shorter than input
	LockAccounts(ctx context.Context, cardNumbers ...string) ([]models.Account, error)

	// Persist mutable fields: is_active, balance, credit fields, last payment
	UpdateAccount(ctx context.Context, account models.Account) (models.Account, error)

	ListAccounts(ctx context.Context, opts ListAccountsOpts) ([]models.Account, error)
}

// Transaction repository interface
// Transactions are append only: no update or delete
type TransactionRepo interface {
	CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// Newest first
	ListTransactions(ctx context.Context, opts ListTransactionsOpts) ([]models.Transaction, error)
}

// Card and loan applications repository interface
type ApplicationRepo interface {
	CreateCardApplication(ctx context.Context, a models.CardApplication) (models.CardApplication, error)

	// If application not found must return apperrors.ErrApplicationNotFound
	GetCardApplication(ctx context.Context, id uuid.UUID, forUpdate bool) (models.CardApplication, error)
	UpdateCardApplication(ctx context.Context, a models.CardApplication) (models.CardApplication, error)
	ListCardApplications(ctx context.Context, opts ListApplicationsOpts) ([]models.CardApplication, error)

	CreateLoanApplication(ctx context.Context, a models.LoanApplication) (models.LoanApplication, error)

	// If application not found must return apperrors.ErrApplicationNotFound
	GetLoanApplication(ctx context.Context, id uuid.UUID, forUpdate bool) (models.LoanApplication, error)
	UpdateLoanApplication(ctx context.Context, a models.LoanApplication) (models.LoanApplication, error)
	ListLoanApplications(ctx context.Context, opts ListApplicationsOpts) ([]models.LoanApplication, error)
}

// Loan repository interface
type LoanRepo interface {
	// Only one loan per application allowed
	// If loan for the application exists must return apperrors.ErrApplicationProcessed
	CreateLoan(ctx context.Context, loan models.Loan) (models.Loan, error)

	// If loan not found must return apperrors.ErrLoanNotFound
	GetLoan(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Loan, error)
	UpdateLoan(ctx context.Context, loan models.Loan) (models.Loan, error)
	ListLoans(ctx context.Context, opts ListLoansOpts) ([]models.Loan, error)
}

type Storage interface {
	Account() AccountRepo
	Transaction() TransactionRepo
	Application() ApplicationRepo
	Loan() LoanRepo

	// Run fn in a transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
