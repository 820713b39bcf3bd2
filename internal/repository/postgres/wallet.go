package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (id, user_id, currency, balance, status, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5, $5)
RETURNING id, user_id, currency, balance, status, created_at, updated_at
`

func (r *WalletRepo) CreateWallet(ctx context.Context, userID string) (models.Wallet, error) {
	now := time.Now()

	rows, _ := r.DB.Query(ctx, createWallet, uuid.New(), userID, models.DefaultCurrency, models.WalletStatusActive, now)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return wallet, apperrors.ErrWalletAlreadyExists
		}
		return wallet, fmt.Errorf("db error: %w", err)
	}

	return wallet, nil
}

const getWalletByUserID = `-- name: GetWalletByUserID
SELECT id, user_id, currency, balance, status, created_at, updated_at FROM wallets
WHERE user_id = $1
`

func (r *WalletRepo) GetWalletByUserID(ctx context.Context, userID string) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWalletByUserID, userID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const getWalletByID = `-- name: GetWalletByID
SELECT id, user_id, currency, balance, status, created_at, updated_at FROM wallets
WHERE id = $1
`

func (r *WalletRepo) GetWalletByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWalletByID, walletID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const getWalletByIDForUpdate = `-- name: GetWalletByIDForUpdate
SELECT id, user_id, currency, balance, status, created_at, updated_at FROM wallets
WHERE id = $1
FOR UPDATE
`

// GetWalletByIDForUpdate locks the wallet row until the surrounding
// transaction ends. Concurrent mutations of the same wallet serialize here.
func (r *WalletRepo) GetWalletByIDForUpdate(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWalletByIDForUpdate, walletID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const applyDelta = `-- name: ApplyDelta
UPDATE wallets
SET balance = balance + $2, updated_at = now()
WHERE id = $1
RETURNING id, user_id, currency, balance, status, created_at, updated_at
`

func (r *WalletRepo) ApplyDelta(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, applyDelta, walletID, delta)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			// balance >= 0 check, the storage level backstop against overdraft
			return wallet, apperrors.ErrInsufficientFunds
		}
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
