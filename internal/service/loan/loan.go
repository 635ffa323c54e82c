// Package loan handles loan applications, origination and repayment.
package loan

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
)

// Annual rate used when admin approves without setting one
var DefaultInterestRate = decimal.RequireFromString("0.12")

const maxTermMonths = 360

type Service struct {
	storage repository.Storage
	events  events.Publisher
	logger  logger.Logger
	now     func() time.Time
}

func NewService(storage repository.Storage, publisher events.Publisher, log logger.Logger) *Service {
	return &Service{
		storage: storage,
		events:  publisher,
		logger:  log,
		now:     time.Now,
	}
}

type ApplicationParams struct {
	Amount        decimal.Decimal
	TermMonths    int
	Purpose       string
	MonthlyIncome decimal.Decimal
	ExistingDebt  decimal.Decimal
}

func (p ApplicationParams) validate() error {
	switch {
	case !p.Amount.IsPositive():
		return fmt.Errorf("requested amount %s: %w", money.Format(p.Amount), apperrors.ErrInvalidArgument)
	case p.TermMonths <= 0 || p.TermMonths > maxTermMonths:
		return fmt.Errorf("term %d months: %w", p.TermMonths, apperrors.ErrInvalidArgument)
	case p.MonthlyIncome.IsNegative():
		return fmt.Errorf("monthly income %s: %w", money.Format(p.MonthlyIncome), apperrors.ErrInvalidArgument)
	case p.ExistingDebt.IsNegative():
		return fmt.Errorf("existing debt %s: %w", money.Format(p.ExistingDebt), apperrors.ErrInvalidArgument)
	}
	return nil
}

// Store PENDING application together with the applicant's credit score
func (s *Service) SubmitApplication(ctx context.Context, userID uuid.UUID, p ApplicationParams) (models.LoanApplication, error) {
	p.Amount = money.Round(p.Amount)
	if err := p.validate(); err != nil {
		return models.LoanApplication{}, err
	}

	application, err := s.storage.Application().CreateLoanApplication(ctx, models.LoanApplication{
		UserID:          userID,
		CreatedAt:       s.now(),
		RequestedAmount: p.Amount,
		TermMonths:      p.TermMonths,
		Purpose:         p.Purpose,
		MonthlyIncome:   p.MonthlyIncome,
		ExistingDebt:    p.ExistingDebt,
		CreditScore:     CreditScore(p.MonthlyIncome, p.ExistingDebt, p.Amount),
		Status:          models.ApplicationStatusPending,
	})
	if err != nil {
		return application, err
	}

	s.logger.Info("loan application submitted", "application_id", application.ID, "score", application.CreditScore)
	return application, nil
}

func (s *Service) ListApplications(ctx context.Context, userID uuid.UUID) ([]models.LoanApplication, error) {
	return s.storage.Application().ListLoanApplications(ctx, repository.ListApplicationsOpts{UserID: &userID})
}

// Loans of the user, active only if activeOnly set
func (s *Service) ListLoans(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]models.Loan, error) {
	opts := repository.ListLoansOpts{UserID: &userID}
	if activeOnly {
		active := true
		opts.IsActive = &active
	}
	return s.storage.Loan().ListLoans(ctx, opts)
}

// Nil fields fall back to the requested amount and DefaultInterestRate
type ApproveParams struct {
	Amount       *decimal.Decimal
	InterestRate *decimal.Decimal
	Notes        string
}

// Approve pending application and originate the loan in one transaction
func (s *Service) ApproveAndOriginate(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, p ApproveParams) (models.Loan, error) {
	var loan models.Loan

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		application, err := storage.Application().GetLoanApplication(ctx, applicationID, true)
		if err != nil {
			return err
		}
		if !application.IsPending() {
			return fmt.Errorf("loan application %s is %s: %w", applicationID, application.Status, apperrors.ErrApplicationProcessed)
		}

		amount := application.RequestedAmount
		if p.Amount != nil {
			amount = money.Round(*p.Amount)
		}
		rate := DefaultInterestRate
		if p.InterestRate != nil {
			// Stored as NUMERIC(6,4)
			rate = p.InterestRate.Round(4)
		}

		payment, err := MonthlyPayment(amount, rate, application.TermMonths)
		if err != nil {
			return err
		}

		now := s.now()
		application.Status = models.ApplicationStatusApproved
		application.ApprovedAmount = &amount
		application.InterestRate = &rate
		application.MonthlyPayment = &payment
		application.ProcessedAt = &now
		application.ProcessedBy = &adminID
		application.AdminNotes = p.Notes
		if _, err := storage.Application().UpdateLoanApplication(ctx, application); err != nil {
			return err
		}

		next := now.AddDate(0, 1, 0)
		loan, err = storage.Loan().CreateLoan(ctx, models.Loan{
			UserID:             application.UserID,
			ApplicationID:      application.ID,
			CreatedAt:          now,
			Principal:          amount,
			OutstandingBalance: amount,
			MonthlyPayment:     payment,
			InterestRate:       rate,
			TotalTerms:         application.TermMonths,
			RemainingTerms:     application.TermMonths,
			NextPaymentAt:      &next,
			IsActive:           true,
		})
		return err
	})
	if err != nil {
		return loan, err
	}

	s.logger.Info("loan originated", "loan_id", loan.ID, "application_id", applicationID, "admin_id", adminID)
	events.Notify(ctx, s.events, s.logger, events.New(events.LoanOriginated, loan.UserID, map[string]any{
		"loan_id":         loan.ID,
		"application_id":  applicationID,
		"principal":       money.Format(loan.Principal),
		"monthly_payment": money.Format(loan.MonthlyPayment),
		"terms":           loan.TotalTerms,
	}))

	return loan, nil
}

func (s *Service) RejectApplication(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, notes string) (models.LoanApplication, error) {
	var application models.LoanApplication

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		application, err = storage.Application().GetLoanApplication(ctx, applicationID, true)
		if err != nil {
			return err
		}
		if !application.IsPending() {
			return fmt.Errorf("loan application %s is %s: %w", applicationID, application.Status, apperrors.ErrApplicationProcessed)
		}

		now := s.now()
		application.Status = models.ApplicationStatusRejected
		application.ProcessedAt = &now
		application.ProcessedBy = &adminID
		application.AdminNotes = notes
		application, err = storage.Application().UpdateLoanApplication(ctx, application)
		return err
	})

	return application, err
}

// Pay the loan down
// Amount above the outstanding balance is clamped, so the loan is never overpaid
func (s *Service) ApplyPayment(ctx context.Context, callerID uuid.UUID, loanID uuid.UUID, amount decimal.Decimal) (models.LoanPaymentResult, error) {
	var result models.LoanPaymentResult
	var loan models.Loan

	amount = money.Round(amount)

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		loan, err = storage.Loan().GetLoan(ctx, loanID, true)
		if err != nil {
			return err
		}

		switch {
		case loan.UserID != callerID:
			return fmt.Errorf("loan %s belongs to another user: %w", loanID, apperrors.ErrForbidden)
		case !amount.IsPositive():
			return fmt.Errorf("loan payment %s: %w", money.Format(amount), apperrors.ErrInvalidArgument)
		case !loan.IsActive:
			return fmt.Errorf("loan %s is settled: %w", loanID, apperrors.ErrInvalidArgument)
		}

		amount = decimal.Min(amount, loan.OutstandingBalance)
		now := s.now()

		loan.OutstandingBalance = loan.OutstandingBalance.Sub(amount)
		loan.LastPaymentAt = &now
		if loan.OutstandingBalance.IsPositive() {
			next := now.AddDate(0, 1, 0)
			loan.NextPaymentAt = &next
			loan.RemainingTerms = remainingTerms(loan.OutstandingBalance, loan.MonthlyPayment)
		} else {
			loan.OutstandingBalance = decimal.Zero
			loan.IsActive = false
			loan.RemainingTerms = 0
			loan.NextPaymentAt = nil
		}

		loan, err = storage.Loan().UpdateLoan(ctx, loan)
		if err != nil {
			return err
		}

		result = models.LoanPaymentResult{
			LoanID:             loan.ID,
			Amount:             amount,
			OutstandingBalance: loan.OutstandingBalance,
			RemainingTerms:     loan.RemainingTerms,
			NextPaymentAt:      loan.NextPaymentAt,
			Settled:            !loan.IsActive,
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if result.Settled {
		s.logger.Info("loan settled", "loan_id", loan.ID)
		events.Notify(ctx, s.events, s.logger, events.New(events.LoanSettled, loan.UserID, map[string]any{
			"loan_id":   loan.ID,
			"principal": money.Format(loan.Principal),
		}))
	}

	return result, nil
}

// ceil(outstanding / payment)
// At least one term is left while anything is owed
func remainingTerms(outstanding, payment decimal.Decimal) int {
	if !outstanding.IsPositive() {
		return 0
	}
	if !payment.IsPositive() {
		return 1
	}
	return max(1, int(outstanding.Div(payment).Ceil().IntPart()))
}
