package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/handlers/render"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/money"
	"github.com/nkiryanov/ledgerbank/internal/service/ledger"
)

type transactionResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Balance       string    `json:"balance"`
}

func handleDeposit(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		CardNumber string          `json:"card_number" validate:"required,luhn"`
		Amount     decimal.Decimal `json:"amount" validate:"gte=0"`
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

		result, err := ledgerService.Deposit(r.Context(), data.CardNumber, data.Amount, data.Notes)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, transactionResponse{result.TransactionID, money.Format(result.Amount), money.Format(result.Balance)})
	})
}

func handleWithdraw(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		CardNumber string          `json:"card_number" validate:"required,luhn"`
		Secret     string          `json:"secret" validate:"required"`
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

		result, err := ledgerService.Withdraw(r.Context(), data.CardNumber, data.Secret, data.Amount, data.Notes)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, transactionResponse{result.TransactionID, money.Format(result.Amount), money.Format(result.Balance)})
	})
}

func handleTransfer(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		FromCard string          `json:"from_card" validate:"required,luhn"`
		Secret   string          `json:"secret" validate:"required"`
		ToCard   string          `json:"to_card" validate:"required,luhn"`
		Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
		Notes    string          `json:"notes" validate:"max=255"`
	}
	type response struct {
		TransferID   uuid.UUID `json:"transfer_id"`
		FromCard     string    `json:"from_card"`
		ToCard       string    `json:"to_card"`
		Amount       string    `json:"amount"`
		Fee          string    `json:"fee"`
		BalanceAfter string    `json:"balance_after"`
		Notes        string    `json:"notes,omitempty"`
		Timestamp    time.Time `json:"timestamp"`
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

		receipt, err := ledgerService.Transfer(r.Context(), identity.UserID, ledger.TransferParams{
			FromCard: data.FromCard,
			Secret:   data.Secret,
			ToCard:   data.ToCard,
			Amount:   data.Amount,
			Notes:    data.Notes,
		})
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, response{
			TransferID:   receipt.TransferID,
			FromCard:     receipt.FromCard,
			ToCard:       receipt.ToCard,
			Amount:       money.Format(receipt.Amount),
			Fee:          money.Format(receipt.Fee),
			BalanceAfter: money.Format(receipt.BalanceAfter),
			Notes:        receipt.Notes,
			Timestamp:    receipt.Timestamp,
		})
	})
}

func handleListAccounts(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}

		accounts, err := ledgerService.ListAccounts(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		views := make([]accountView, 0, len(accounts))
		for _, a := range accounts {
			views = append(views, newAccountView(a))
		}
		render.JSON(w, views)
	})
}

func handleAccountTransactions(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}
		accountID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		transactions, err := ledgerService.AccountHistory(r.Context(), identity.UserID, accountID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newTransactionViews(transactions))
	})
}

func handleHistory(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := caller(w, r)
		if !ok {
			return
		}

		transactions, err := ledgerService.History(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newTransactionViews(transactions))
	})
}
