package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/handlers/render"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/service/loan"
)

type decisionRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

// Decision body is optional: request without body means defaults
func bindOptional[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	if r.ContentLength == 0 {
		var zero T
		return zero, nil
	}
	return render.BindAndValidate[T](w, r)
}

func handleApproveCardApplication(onboardingService onboardingService, l logger.Logger) http.Handler {
	type response struct {
		accountView
		CVV string `json:"cvv,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := caller(w, r)
		if !ok {
			return
		}
		applicationID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		data, err := bindOptional[decisionRequest](w, r)
		if err != nil {
			return
		}

		opened, err := onboardingService.MaterializeAccount(r.Context(), admin.UserID, applicationID, data.Notes)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.Created(w, response{newAccountView(opened.Account), opened.CVV})
	})
}

func handleRejectCardApplication(onboardingService onboardingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := caller(w, r)
		if !ok {
			return
		}
		applicationID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		data, err := bindOptional[decisionRequest](w, r)
		if err != nil {
			return
		}

		application, err := onboardingService.RejectCardApplication(r.Context(), admin.UserID, applicationID, data.Notes)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newCardApplicationView(application))
	})
}

func handleApproveLoanApplication(loanService loanService, l logger.Logger) http.Handler {
	type request struct {
		Amount       *decimal.Decimal `json:"amount" validate:"omitempty,gt=0"`
		InterestRate *decimal.Decimal `json:"interest_rate" validate:"omitempty,gte=0,lte=1"`
		Notes        string           `json:"notes" validate:"max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := caller(w, r)
		if !ok {
			return
		}
		applicationID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		data, err := bindOptional[request](w, r)
		if err != nil {
			return
		}

		originated, err := loanService.ApproveAndOriginate(r.Context(), admin.UserID, applicationID, loan.ApproveParams{
			Amount:       data.Amount,
			InterestRate: data.InterestRate,
			Notes:        data.Notes,
		})
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.Created(w, newLoanView(originated))
	})
}

func handleRejectLoanApplication(loanService loanService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := caller(w, r)
		if !ok {
			return
		}
		applicationID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		data, err := bindOptional[decisionRequest](w, r)
		if err != nil {
			return
		}

		application, err := loanService.RejectApplication(r.Context(), admin.UserID, applicationID, data.Notes)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newLoanApplicationView(application))
	})
}

func handleSetActive(ledgerService ledgerService, active bool, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := caller(w, r); !ok {
			return
		}

		account, err := ledgerService.SetActive(r.Context(), r.PathValue("card"), active)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newAccountView(account))
	})
}
