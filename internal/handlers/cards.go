package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/handlers/render"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/service/credit"
)

func handleSpend(creditService creditService, l logger.Logger) http.Handler {
	type request struct {
		CardNumber string          `json:"card_number" validate:"required,luhn"`
		CVV        string          `json:"cvv" validate:"required,len=3,numeric"`
		Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
		Notes      string          `json:"notes" validate:"max=255"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := caller(w, r); !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := creditService.Spend(r.Context(), credit.SpendParams{
			CardNumber: data.CardNumber,
			CVV:        data.CVV,
			Amount:     data.Amount,
			Notes:      data.Notes,
		})
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newCreditView(result))
	})
}

func handleCardPayment(creditService creditService, l logger.Logger) http.Handler {
	type request struct {
		CreditCard      string          `json:"credit_card" validate:"required,luhn"`
		Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
		Method          string          `json:"method" validate:"required,oneof=CASH DEBIT_CARD"`
		SourceDebitCard string          `json:"source_debit_card" validate:"omitempty,luhn"`
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

		result, err := creditService.Payment(r.Context(), identity.UserID, credit.PaymentParams{
			CreditCard:      data.CreditCard,
			Amount:          data.Amount,
			Method:          data.Method,
			SourceDebitCard: data.SourceDebitCard,
		})
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newCreditView(result))
	})
}
