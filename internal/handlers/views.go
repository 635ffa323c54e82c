package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/handlers/render"
	"github.com/nkiryanov/ledgerbank/internal/handlers/userctx"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/money"
	"github.com/nkiryanov/ledgerbank/internal/service/auth/tokenmanager"
)

// Caller put to context by auth middleware
func caller(w http.ResponseWriter, r *http.Request) (tokenmanager.Identity, bool) {
	identity, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
	}
	return identity, ok
}

func optionalAmount(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money.Format(*d)
	return &s
}

type accountView struct {
	ID                 uuid.UUID  `json:"id"`
	CardNumber         string     `json:"card_number"`
	CardType           string     `json:"card_type"`
	IsActive           bool       `json:"is_active"`
	Balance            string     `json:"balance"`
	CreditLimit        *string    `json:"credit_limit,omitempty"`
	AvailableCredit    *string    `json:"available_credit,omitempty"`
	OutstandingBalance *string    `json:"outstanding_balance,omitempty"`
	LastPaymentAt      *time.Time `json:"last_payment_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func newAccountView(a models.Account) accountView {
	v := accountView{
		ID:         a.ID,
		CardNumber: a.CardNumber,
		CardType:   a.CardType,
		IsActive:   a.IsActive,
		Balance:    money.Format(a.Balance),
		CreatedAt:  a.CreatedAt,
	}
	if a.IsCredit() {
		v.CreditLimit = optionalAmount(&a.CreditLimit)
		v.AvailableCredit = optionalAmount(&a.AvailableCredit)
		v.OutstandingBalance = optionalAmount(&a.OutstandingBalance)
		v.LastPaymentAt = a.LastPaymentAt
	}
	return v
}

type transactionView struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Notes       string    `json:"notes"`
	ProcessedAt time.Time `json:"processed_at"`
}

func newTransactionViews(transactions []models.Transaction) []transactionView {
	views := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, transactionView{
			ID:          t.ID,
			AccountID:   t.AccountID,
			Type:        t.Type,
			Amount:      money.Format(t.Amount),
			Notes:       t.Notes,
			ProcessedAt: t.ProcessedAt,
		})
	}
	return views
}

type creditView struct {
	TransactionID      uuid.UUID `json:"transaction_id"`
	Amount             string    `json:"amount"`
	AvailableCredit    string    `json:"available_credit"`
	OutstandingBalance string    `json:"outstanding_balance"`
}

func newCreditView(r models.CreditResult) creditView {
	return creditView{
		TransactionID:      r.TransactionID,
		Amount:             money.Format(r.Amount),
		AvailableCredit:    money.Format(r.AvailableCredit),
		OutstandingBalance: money.Format(r.OutstandingBalance),
	}
}

type cardApplicationView struct {
	ID                   uuid.UUID  `json:"id"`
	CardType             string     `json:"card_type"`
	RequestedCreditLimit *string    `json:"requested_credit_limit,omitempty"`
	Reason               string     `json:"reason,omitempty"`
	Status               string     `json:"status"`
	AdminNotes           string     `json:"admin_notes,omitempty"`
	CardNumber           string     `json:"card_number,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	ProcessedAt          *time.Time `json:"processed_at,omitempty"`
}

func newCardApplicationView(a models.CardApplication) cardApplicationView {
	return cardApplicationView{
		ID:                   a.ID,
		CardType:             a.CardType,
		RequestedCreditLimit: optionalAmount(a.RequestedCreditLimit),
		Reason:               a.Reason,
		Status:               a.Status,
		AdminNotes:           a.AdminNotes,
		CardNumber:           a.GeneratedCardNumber,
		CreatedAt:            a.CreatedAt,
		ProcessedAt:          a.ProcessedAt,
	}
}

type loanApplicationView struct {
	ID              uuid.UUID  `json:"id"`
	RequestedAmount string     `json:"requested_amount"`
	TermMonths      int        `json:"term_months"`
	Purpose         string     `json:"purpose,omitempty"`
	CreditScore     int        `json:"credit_score"`
	Status          string     `json:"status"`
	ApprovedAmount  *string    `json:"approved_amount,omitempty"`
	InterestRate    *string    `json:"interest_rate,omitempty"`
	MonthlyPayment  *string    `json:"monthly_payment,omitempty"`
	AdminNotes      string     `json:"admin_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

func newLoanApplicationView(a models.LoanApplication) loanApplicationView {
	var rate *string
	if a.InterestRate != nil {
		s := a.InterestRate.String()
		rate = &s
	}
	return loanApplicationView{
		ID:              a.ID,
		RequestedAmount: money.Format(a.RequestedAmount),
		TermMonths:      a.TermMonths,
		Purpose:         a.Purpose,
		CreditScore:     a.CreditScore,
		Status:          a.Status,
		ApprovedAmount:  optionalAmount(a.ApprovedAmount),
		InterestRate:    rate,
		MonthlyPayment:  optionalAmount(a.MonthlyPayment),
		AdminNotes:      a.AdminNotes,
		CreatedAt:       a.CreatedAt,
		ProcessedAt:     a.ProcessedAt,
	}
}

type loanView struct {
	ID                 uuid.UUID  `json:"id"`
	ApplicationID      uuid.UUID  `json:"application_id"`
	Principal          string     `json:"principal"`
	OutstandingBalance string     `json:"outstanding_balance"`
	MonthlyPayment     string     `json:"monthly_payment"`
	InterestRate       string     `json:"interest_rate"`
	TotalTerms         int        `json:"total_terms"`
	RemainingTerms     int        `json:"remaining_terms"`
	NextPaymentAt      *time.Time `json:"next_payment_at,omitempty"`
	LastPaymentAt      *time.Time `json:"last_payment_at,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
}

func newLoanView(l models.Loan) loanView {
	return loanView{
		ID:                 l.ID,
		ApplicationID:      l.ApplicationID,
		Principal:          money.Format(l.Principal),
		OutstandingBalance: money.Format(l.OutstandingBalance),
		MonthlyPayment:     money.Format(l.MonthlyPayment),
		InterestRate:       l.InterestRate.String(),
		TotalTerms:         l.TotalTerms,
		RemainingTerms:     l.RemainingTerms,
		NextPaymentAt:      l.NextPaymentAt,
		LastPaymentAt:      l.LastPaymentAt,
		IsActive:           l.IsActive,
		CreatedAt:          l.CreatedAt,
	}
}
