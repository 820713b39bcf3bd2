package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/handlers/render"
	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/models"
)

// Credit and debit share the same request shape, they are both called by the
// transaction service with its own external transaction id.
type movementRequest struct {
	WalletID              string          `json:"walletId" validate:"required,uuid"`
	Amount                decimal.Decimal `json:"amount"`
	ExternalTransactionID string          `json:"externalTransactionId" validate:"required"`
	Description           string          `json:"description"`
}

type movementFunc func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, externalTxID string, description string) (models.Wallet, error)

func handleCredit(processor transactionProcessor, l logger.Logger) http.Handler {
	return handleMovement(processor.Credit, l)
}

func handleDebit(processor transactionProcessor, l logger.Logger) http.Handler {
	return handleMovement(processor.Debit, l)
}

func handleMovement(apply movementFunc, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[movementRequest](w, r)
		if err != nil {
			return
		}

		// uuid format is already validated
		walletID := uuid.MustParse(req.WalletID)

		wallet, err := apply(r.Context(), walletID, req.Amount, req.ExternalTransactionID, req.Description)

		switch {
		case err == nil:
			render.JSON(w, toWalletResponse(wallet))
		case errors.Is(err, apperrors.ErrAmountNotPositive):
			render.ServiceError(w, "Amount must be a positive number", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrExternalTxIDRequired):
			render.ServiceError(w, "externalTransactionId is required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ErrorCode(w, "WALLET_NOT_FOUND", "Wallet not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrWalletInactive):
			render.ErrorCode(w, "WALLET_INACTIVE", "Wallet is not active", http.StatusConflict)
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ErrorCode(w, "INSUFFICIENT_FUNDS", "Insufficient funds", http.StatusConflict)
		case errors.Is(err, apperrors.ErrDailyLimitExceeded):
			render.ErrorCode(w, "DAILY_LIMIT_EXCEEDED", "Daily debit limit exceeded", http.StatusConflict)
		case errors.Is(err, apperrors.ErrDuplicateTransaction):
			render.ErrorCode(w, "DUPLICATE_TRANSACTION", "External transaction id already used for a different movement", http.StatusConflict)
		default:
			l.Error("Failed to apply movement", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
