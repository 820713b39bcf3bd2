package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/models"
	"github.com/paylane/walletsvc/internal/repository"
)

type LedgerRepo struct {
	DB DBTX
}

const appendEntry = `-- name: Append
INSERT INTO ledger (wallet_id, external_tx_id, original_tx_id, type, amount, balance_before, balance_after, description, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, wallet_id, external_tx_id, original_tx_id, type, amount, balance_before, balance_after, description, status, created_at
`

func (r *LedgerRepo) Append(ctx context.Context, arg repository.AppendEntryParams) (models.LedgerEntry, error) {
	rows, _ := r.DB.Query(ctx, appendEntry,
		arg.WalletID,
		arg.ExternalTxID,
		arg.OriginalTxID,
		arg.Type,
		arg.Amount,
		arg.BalanceBefore,
		arg.BalanceAfter,
		arg.Description,
		arg.Status,
	)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Two constraints can collide here: the external tx id (duplicate
			// delivery) and the one-compensation-per-original index
			if pgErr.ConstraintName == "uq_ledger_original_tx_id" {
				return entry, apperrors.ErrAlreadyCompensated
			}
			return entry, apperrors.ErrDuplicateTransaction
		}
		return entry, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

const getByExternalID = `-- name: GetByExternalID
SELECT id, wallet_id, external_tx_id, original_tx_id, type, amount, balance_before, balance_after, description, status, created_at
FROM ledger
WHERE external_tx_id = $1
`

func (r *LedgerRepo) GetByExternalID(ctx context.Context, externalTxID string) (models.LedgerEntry, error) {
	rows, _ := r.DB.Query(ctx, getByExternalID, externalTxID)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		return entry, apperrors.ErrLedgerEntryNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

const getCompensationFor = `-- name: GetCompensationFor
SELECT id, wallet_id, external_tx_id, original_tx_id, type, amount, balance_before, balance_after, description, status, created_at
FROM ledger
WHERE original_tx_id = $1
`

func (r *LedgerRepo) GetCompensationFor(ctx context.Context, originalTxID string) (models.LedgerEntry, error) {
	rows, _ := r.DB.Query(ctx, getCompensationFor, originalTxID)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		return entry, apperrors.ErrLedgerEntryNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

const listByWallet = `-- name: ListByWallet
SELECT id, wallet_id, external_tx_id, original_tx_id, type, amount, balance_before, balance_after, description, status, created_at
FROM ledger
WHERE wallet_id = $1
ORDER BY id ASC
`

func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.LedgerEntry, error) {
	rows, _ := r.DB.Query(ctx, listByWallet, walletID)
	entries, err := pgx.CollectRows(rows, rowToEntry)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func rowToEntry(row pgx.CollectableRow) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.WalletID,
		&e.ExternalTxID,
		&e.OriginalTxID,
		&e.Type,
		&e.Amount,
		&e.BalanceBefore,
		&e.BalanceAfter,
		&e.Description,
		&e.Status,
		&e.CreatedAt,
	)
	return e, err
}
