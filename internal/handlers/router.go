package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/auth"
	"github.com/paylane/walletsvc/internal/handlers/middleware"
	"github.com/paylane/walletsvc/internal/handlers/render"
	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	walletService walletService,
	processor transactionProcessor,
	coordinator compensationCoordinator,
	verifier tokenVerifier,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(verifier)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	mux := http.NewServeMux()

	// Reads are open to any collaborator, mutations sit behind the JWT gate
	mux.Handle("POST /api/v1/wallets", withAuth(handleCreateWallet(walletService, logger)))
	mux.Handle("GET /api/v1/wallets/{userID}/balance", handleGetBalance(walletService, logger))
	mux.Handle("GET /api/v1/wallets/{walletID}", handleGetWallet(walletService, logger))
	mux.Handle("GET /api/v1/wallets/{walletID}/ledger", handleGetLedger(walletService, logger))
	mux.Handle("POST /api/v1/wallets/credit", withAuth(handleCredit(processor, logger)))
	mux.Handle("POST /api/v1/wallets/debit", withAuth(handleDebit(processor, logger)))
	mux.Handle("POST /api/v1/wallets/compensate", withAuth(handleCompensate(coordinator, logger)))

	mux.Handle("GET /ping", handlePing())

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

func handlePing() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, map[string]string{"message": "pong"})
	})
}

type walletService interface {
	// Create wallet with zero balance and a fresh daily limit
	// Has to return apperrors.ErrWalletAlreadyExists if the user owns one already
	CreateWallet(ctx context.Context, userID string) (models.Wallet, error)

	// Has to return apperrors.ErrWalletNotFound if wallet not found
	GetByUserID(ctx context.Context, userID string) (models.Wallet, error)
	GetByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)
	ListLedger(ctx context.Context, walletID uuid.UUID) ([]models.LedgerEntry, error)
}

type transactionProcessor interface {
	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, externalTxID string, description string) (models.Wallet, error)
	Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, externalTxID string, description string) (models.Wallet, error)
}

type compensationCoordinator interface {
	Compensate(ctx context.Context, originalTxID string, compensationTxID string) (models.LedgerEntry, error)
}

type tokenVerifier interface {
	FromRequest(r *http.Request) (auth.Claims, error)
}
