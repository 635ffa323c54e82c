package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
	"github.com/nkiryanov/ledgerbank/internal/handlers/render"
	"github.com/nkiryanov/ledgerbank/internal/logger"
)

// Render service error with the status matching its kind
// Unknown errors are logged and hidden behind 500
func renderError(w http.ResponseWriter, err error, l logger.Logger) {
	switch {
	case errors.Is(err, apperrors.ErrAuthFailed):
		render.ServiceError(w, "Authentication failed", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrForbidden):
		render.ServiceError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, apperrors.ErrAccountNotFound),
		errors.Is(err, apperrors.ErrLoanNotFound),
		errors.Is(err, apperrors.ErrApplicationNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound):
		render.ServiceError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		render.ServiceError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrCreditExceeded):
		render.ServiceError(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, apperrors.ErrFrozen):
		render.ServiceError(w, err.Error(), http.StatusLocked)
	case errors.Is(err, apperrors.ErrApplicationProcessed),
		errors.Is(err, apperrors.ErrCardNumberTaken):
		render.ServiceError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, apperrors.ErrRetryable):
		w.Header().Set("Retry-After", "1")
		render.ServiceError(w, "Service is busy, retry later", http.StatusServiceUnavailable)
	default:
		l.Error("Request failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Parse uuid path value, renders 400 if it is malformed
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		render.ServiceError(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
