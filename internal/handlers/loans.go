package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/handlers/render"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/money"
	"github.com/nkiryanov/ledgerbank/internal/service/loan"
)

// Loans of the caller, ?active=true lists only not settled ones
func handleListLoans(loanService loanService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}

		activeOnly := r.URL.Query().Get("active") == "true"
		loans, err := loanService.ListLoans(r.Context(), identity.UserID, activeOnly)
		if err != nil {
			renderError(w, err, l)
			return
		}

		views := make([]loanView, 0, len(loans))
		for i := range loans {
			views = append(views, newLoanView(loans[i]))
		}
		render.JSON(w, views)
	})
}

func handleLoanPayment(loanService loanService, l logger.Logger) http.Handler {
	type request struct {
		Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	}
	type response struct {
		LoanID             string  `json:"loan_id"`
		Amount             string  `json:"amount"`
		OutstandingBalance string  `json:"outstanding_balance"`
		RemainingTerms     int     `json:"remaining_terms"`
		NextPaymentAt      *string `json:"next_payment_at,omitempty"`
		Settled            bool    `json:"settled"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}
		loanID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := loanService.ApplyPayment(r.Context(), identity.UserID, loanID, data.Amount)
		if err != nil {
			renderError(w, err, l)
			return
		}

		res := response{
			LoanID:             result.LoanID.String(),
			Amount:             money.Format(result.Amount),
			OutstandingBalance: money.Format(result.OutstandingBalance),
			RemainingTerms:     result.RemainingTerms,
			Settled:            result.Settled,
		}
		if result.NextPaymentAt != nil {
			next := result.NextPaymentAt.Format("2006-01-02")
			res.NextPaymentAt = &next
		}
		render.JSON(w, res)
	})
}

// Preview credit score before applying
func handleCreditScore() http.Handler {
	type request struct {
		MonthlyIncome   decimal.Decimal `json:"monthly_income" validate:"gte=0"`
		ExistingDebt    decimal.Decimal `json:"existing_debt" validate:"gte=0"`
		RequestedAmount decimal.Decimal `json:"requested_amount" validate:"gt=0"`
	}
	type response struct {
		Score int `json:"score"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		render.JSON(w, response{Score: loan.CreditScore(data.MonthlyIncome, data.ExistingDebt, data.RequestedAmount)})
	})
}
