package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/handlers/render"
	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/models"
)

type WalletResponse struct {
	WalletID  string          `json:"walletId"`
	UserID    string          `json:"userId"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toWalletResponse(w models.Wallet) WalletResponse {
	return WalletResponse{
		WalletID:  w.ID.String(),
		UserID:    w.UserID,
		Currency:  w.Currency,
		Balance:   w.Balance,
		Status:    w.Status,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type LedgerEntryResponse struct {
	LedgerID              int64           `json:"ledgerId"`
	WalletID              string          `json:"walletId"`
	ExternalTransactionID string          `json:"externalTransactionId"`
	OriginalTransactionID *string         `json:"originalTransactionId,omitempty"`
	Type                  string          `json:"type"`
	Amount                decimal.Decimal `json:"amount"`
	BalanceBefore         decimal.Decimal `json:"balanceBefore"`
	BalanceAfter          decimal.Decimal `json:"balanceAfter"`
	Description           string          `json:"description"`
	Status                string          `json:"status"`
	CreatedAt             time.Time       `json:"createdAt"`
}

func toLedgerEntryResponse(e models.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		LedgerID:              e.ID,
		WalletID:              e.WalletID.String(),
		ExternalTransactionID: e.ExternalTxID,
		OriginalTransactionID: e.OriginalTxID,
		Type:                  e.Type,
		Amount:                e.Amount,
		BalanceBefore:         e.BalanceBefore,
		BalanceAfter:          e.BalanceAfter,
		Description:           e.Description,
		Status:                e.Status,
		CreatedAt:             e.CreatedAt,
	}
}

func handleCreateWallet(walletService walletService, l logger.Logger) http.Handler {
	type request struct {
		UserID string `json:"userId" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		wallet, err := walletService.CreateWallet(r.Context(), req.UserID)

		switch {
		case err == nil:
			render.JSONWithStatus(w, toWalletResponse(wallet), http.StatusCreated)
		case errors.Is(err, apperrors.ErrWalletAlreadyExists):
			render.ErrorCode(w, "ALREADY_EXISTS", "Wallet already exists for this user", http.StatusConflict)
		default:
			l.Error("Failed to create wallet", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetBalance(walletService walletService, l logger.Logger) http.Handler {
	type response struct {
		WalletID string          `json:"walletId"`
		UserID   string          `json:"userId"`
		Currency string          `json:"currency"`
		Balance  decimal.Decimal `json:"balance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet, err := walletService.GetByUserID(r.Context(), r.PathValue("userID"))

		switch {
		case err == nil:
			render.JSON(w, response{
				WalletID: wallet.ID.String(),
				UserID:   wallet.UserID,
				Currency: wallet.Currency,
				Balance:  wallet.Balance,
			})
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ErrorCode(w, "NOT_FOUND", "Wallet not found for this user", http.StatusNotFound)
		default:
			l.Error("Failed to get balance", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetWallet(walletService walletService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		walletID, err := uuid.Parse(r.PathValue("walletID"))
		if err != nil {
			render.ServiceError(w, "walletId must be a valid UUID", http.StatusBadRequest)
			return
		}

		wallet, err := walletService.GetByID(r.Context(), walletID)

		switch {
		case err == nil:
			render.JSON(w, toWalletResponse(wallet))
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ErrorCode(w, "NOT_FOUND", "Wallet not found", http.StatusNotFound)
		default:
			l.Error("Failed to get wallet", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetLedger(walletService walletService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		walletID, err := uuid.Parse(r.PathValue("walletID"))
		if err != nil {
			render.ServiceError(w, "walletId must be a valid UUID", http.StatusBadRequest)
			return
		}

		entries, err := walletService.ListLedger(r.Context(), walletID)

		switch {
		case err == nil:
			response := make([]LedgerEntryResponse, 0, len(entries))
			for _, e := range entries {
				response = append(response, toLedgerEntryResponse(e))
			}
			render.JSON(w, response)
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ErrorCode(w, "NOT_FOUND", "Wallet not found", http.StatusNotFound)
		default:
			l.Error("Failed to get ledger", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
