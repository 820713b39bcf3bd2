package handlers

import (
	"errors"
	"net/http"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/handlers/render"
	"github.com/paylane/walletsvc/internal/logger"
)

func handleCompensate(coordinator compensationCoordinator, l logger.Logger) http.Handler {
	type request struct {
		OriginalExternalTransactionID string `json:"originalExternalTransactionId" validate:"required"`
		CompensationTransactionID     string `json:"compensationTransactionId" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		entry, err := coordinator.Compensate(r.Context(), req.OriginalExternalTransactionID, req.CompensationTransactionID)

		switch {
		case err == nil:
			render.JSON(w, toLedgerEntryResponse(entry))
		case errors.Is(err, apperrors.ErrOriginalTxNotFound):
			render.ErrorCode(w, "ORIGINAL_NOT_FOUND", "Original transaction not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAlreadyCompensated):
			render.ErrorCode(w, "ALREADY_COMPENSATED", "Transaction already compensated", http.StatusConflict)
		case errors.Is(err, apperrors.ErrInsufficientFundsForCompensation):
			render.ErrorCode(w, "INSUFFICIENT_FUNDS_FOR_COMPENSATION", "Insufficient funds for compensation", http.StatusConflict)
		case errors.Is(err, apperrors.ErrDuplicateTransaction):
			render.ErrorCode(w, "DUPLICATE_TRANSACTION", "Compensation transaction id already used for a different movement", http.StatusConflict)
		default:
			l.Error("Failed to compensate transaction", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
