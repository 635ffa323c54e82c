package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/handlers/render"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/service/loan"
	"github.com/nkiryanov/ledgerbank/internal/service/onboarding"
)

func handleSubmitCardApplication(onboardingService onboardingService, l logger.Logger) http.Handler {
	type request struct {
		CardType    string           `json:"card_type" validate:"required,oneof=DEBIT CREDIT"`
		Secret      string           `json:"secret" validate:"required,len=6,numeric"`
		CreditLimit *decimal.Decimal `json:"credit_limit" validate:"omitempty,gt=0"`
		Reason      string           `json:"reason" validate:"max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		application, err := onboardingService.SubmitCardApplication(r.Context(), identity.UserID, onboarding.CardApplicationParams{
			CardType:    data.CardType,
			Secret:      data.Secret,
			CreditLimit: data.CreditLimit,
			Reason:      data.Reason,
		})
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.Created(w, newCardApplicationView(application))
	})
}

func handleListCardApplications(onboardingService onboardingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}

		applications, err := onboardingService.ListCardApplications(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		views := make([]cardApplicationView, 0, len(applications))
		for _, a := range applications {
			views = append(views, newCardApplicationView(a))
		}
		render.JSON(w, views)
	})
}

func handleSubmitLoanApplication(loanService loanService, l logger.Logger) http.Handler {
	type request struct {
		Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
		TermMonths    int             `json:"term_months" validate:"gt=0,lte=360"`
		Purpose       string          `json:"purpose" validate:"max=500"`
		MonthlyIncome decimal.Decimal `json:"monthly_income" validate:"gte=0"`
		ExistingDebt  decimal.Decimal `json:"existing_debt" validate:"gte=0"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		application, err := loanService.SubmitApplication(r.Context(), identity.UserID, loan.ApplicationParams{
			Amount:        data.Amount,
			TermMonths:    data.TermMonths,
			Purpose:       data.Purpose,
			MonthlyIncome: data.MonthlyIncome,
			ExistingDebt:  data.ExistingDebt,
		})
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.Created(w, newLoanApplicationView(application))
	})
}

func handleListLoanApplications(loanService loanService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}

		applications, err := loanService.ListApplications(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		views := make([]loanApplicationView, 0, len(applications))
		for _, a := range applications {
			views = append(views, newLoanApplicationView(a))
		}
		render.JSON(w, views)
	})
}
