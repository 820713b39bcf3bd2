package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/models"
)

// Storage bundles the persisted relations and the transactional boundary.
// Every mutating flow (credit, debit, compensation) must run inside InTx so
// balance mutation, limit consumption and ledger append commit or roll back
// as one unit.
type Storage interface {
	Wallet() WalletRepo
	Limit() LimitRepo
	Ledger() LedgerRepo

	// Run fn within a db transaction. The storage passed to fn operates on
	// that transaction only.
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Wallet repository interface
type WalletRepo interface {
	// Create wallet with zero balance, ACTIVE status and default currency
	// If wallet for the user exists already must return apperrors.ErrWalletAlreadyExists
	CreateWallet(ctx context.Context, userID string) (models.Wallet, error)

	// Get wallet by user id or wallet id
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetWalletByUserID(ctx context.Context, userID string) (models.Wallet, error)
	GetWalletByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)

	// Same as GetWalletByID but takes a row level exclusive lock.
	// The wallet row is the serialization boundary: all mutations of one
	// wallet queue up behind this lock until the surrounding tx ends.
	GetWalletByIDForUpdate(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)

	// Shift balance by delta (negative for debits) and return the updated wallet.
	// Must only be called with the wallet row already locked inside InTx.
	ApplyDelta(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (models.Wallet, error)
}

// Daily debit limit repository interface
type LimitRepo interface {
	// Create the limit row for a freshly created wallet
	CreateLimit(ctx context.Context, walletID uuid.UUID, dailyLimit decimal.Decimal) (models.WalletLimit, error)

	GetLimit(ctx context.Context, walletID uuid.UUID) (models.WalletLimit, error)

	// Atomically roll the used-today counter over to zero when the stored day
	// differs from asOf, then consume amount from the allowance.
	// If the consumption would exceed daily_limit must return apperrors.ErrDailyLimitExceeded
	Reserve(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, asOf time.Time) (models.WalletLimit, error)
}

type AppendEntryParams struct {
	WalletID      uuid.UUID
	ExternalTxID  string
	OriginalTxID  *string
	Type          string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	Status        string
}

// Append only ledger repository interface
type LedgerRepo interface {
	// Insert a new entry. The database-enforced unique constraint on
	// external_tx_id is the cross-process deduplication boundary:
	// on collision must return apperrors.ErrDuplicateTransaction so the
	// caller can answer with the previously recorded result.
	Append(ctx context.Context, arg AppendEntryParams) (models.LedgerEntry, error)

	// Get entry by its external transaction id
	// If no entry exists must return apperrors.ErrLedgerEntryNotFound
	GetByExternalID(ctx context.Context, externalTxID string) (models.LedgerEntry, error)

	// Get the compensation entry that reversed originalTxID, if any
	// If no entry exists must return apperrors.ErrLedgerEntryNotFound
	GetCompensationFor(ctx context.Context, originalTxID string) (models.LedgerEntry, error)

	// List wallet entries in ascending creation order (point in time read)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.LedgerEntry, error)
}
