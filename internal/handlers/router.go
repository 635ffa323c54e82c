package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/handlers/middleware"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/ledgerbank/internal/service/credit"
	"github.com/nkiryanov/ledgerbank/internal/service/ledger"
	"github.com/nkiryanov/ledgerbank/internal/service/loan"
	"github.com/nkiryanov/ledgerbank/internal/service/onboarding"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Ledger     ledgerService
	Credit     creditService
	Loan       loanService
	Onboarding onboardingService
}

func NewRouter(services Services, tokens tokenParser, logger logger.Logger) http.Handler {
	withAuth := middleware.Auth(tokens)
	withAdmin := func(h http.Handler) http.Handler {
		return withAuth(middleware.AdminOnly(h))
	}

	api := http.NewServeMux()

	api.Handle("POST /accounts/deposit", withAuth(handleDeposit(services.Ledger, logger)))
	api.Handle("POST /accounts/withdraw", withAuth(handleWithdraw(services.Ledger, logger)))
	api.Handle("POST /accounts/transfer", withAuth(handleTransfer(services.Ledger, logger)))
	api.Handle("GET /accounts", withAuth(handleListAccounts(services.Ledger, logger)))
	api.Handle("GET /accounts/{id}/transactions", withAuth(handleAccountTransactions(services.Ledger, logger)))
	api.Handle("GET /transactions", withAuth(handleHistory(services.Ledger, logger)))

	api.Handle("POST /cards/spend", withAuth(handleSpend(services.Credit, logger)))
	api.Handle("POST /cards/payment", withAuth(handleCardPayment(services.Credit, logger)))

	api.Handle("POST /applications/cards", withAuth(handleSubmitCardApplication(services.Onboarding, logger)))
	api.Handle("GET /applications/cards", withAuth(handleListCardApplications(services.Onboarding, logger)))
	api.Handle("POST /applications/loans", withAuth(handleSubmitLoanApplication(services.Loan, logger)))
	api.Handle("GET /applications/loans", withAuth(handleListLoanApplications(services.Loan, logger)))

	api.Handle("GET /loans", withAuth(handleListLoans(services.Loan, logger)))
	api.Handle("POST /loans/{id}/payments", withAuth(handleLoanPayment(services.Loan, logger)))
	api.Handle("POST /loans/score", withAuth(handleCreditScore()))

	api.Handle("POST /admin/applications/cards/{id}/approve", withAdmin(handleApproveCardApplication(services.Onboarding, logger)))
	api.Handle("POST /admin/applications/cards/{id}/reject", withAdmin(handleRejectCardApplication(services.Onboarding, logger)))
	api.Handle("POST /admin/applications/loans/{id}/approve", withAdmin(handleApproveLoanApplication(services.Loan, logger)))
	api.Handle("POST /admin/applications/loans/{id}/reject", withAdmin(handleRejectLoanApplication(services.Loan, logger)))
	api.Handle("POST /admin/accounts/{card}/freeze", withAdmin(handleSetActive(services.Ledger, false, logger)))
	api.Handle("POST /admin/accounts/{card}/unfreeze", withAdmin(handleSetActive(services.Ledger, true, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.Logger(logger),
	)

	return handler
}

type tokenParser interface {
	ParseAccess(access string) (tokenmanager.Identity, error)
}

type ledgerService interface {
	// Knowing the card number is enough to deposit
	Deposit(ctx context.Context, cardNumber string, amount decimal.Decimal, notes string) (models.TransactionResult, error)

	// Has to return apperrors.ErrAuthFailed if card unknown or secret is wrong
	Withdraw(ctx context.Context, cardNumber string, secret string, amount decimal.Decimal, notes string) (models.TransactionResult, error)

	Transfer(ctx context.Context, callerID uuid.UUID, p ledger.TransferParams) (models.TransferReceipt, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
	AccountHistory(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) ([]models.Transaction, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error)
	SetActive(ctx context.Context, cardNumber string, active bool) (models.Account, error)
}

type creditService interface {
	Spend(ctx context.Context, p credit.SpendParams) (models.CreditResult, error)
	Payment(ctx context.Context, callerID uuid.UUID, p credit.PaymentParams) (models.CreditResult, error)
}

type loanService interface {
	SubmitApplication(ctx context.Context, userID uuid.UUID, p loan.ApplicationParams) (models.LoanApplication, error)
	ListApplications(ctx context.Context, userID uuid.UUID) ([]models.LoanApplication, error)
	ListLoans(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]models.Loan, error)
	ApproveAndOriginate(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, p loan.ApproveParams) (models.Loan, error)
	RejectApplication(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, notes string) (models.LoanApplication, error)
	ApplyPayment(ctx context.Context, callerID uuid.UUID, loanID uuid.UUID, amount decimal.Decimal) (models.LoanPaymentResult, error)
}

type onboardingService interface {
	SubmitCardApplication(ctx context.Context, userID uuid.UUID, p onboarding.CardApplicationParams) (models.CardApplication, error)
	ListCardApplications(ctx context.Context, userID uuid.UUID) ([]models.CardApplication, error)
	MaterializeAccount(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, notes string) (models.OpenedAccount, error)
	RejectCardApplication(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, notes string) (models.CardApplication, error)
}
