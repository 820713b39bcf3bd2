package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EntryTypeCredit       = "CREDIT"
	EntryTypeDebit        = "DEBIT"
	EntryTypeCompensation = "COMPENSATION"
)

// Ledger entry statuses. Single-step movements are written COMPLETED directly;
// PENDING and FAILED are reserved for future multi-step sagas.
const (
	EntryStatusPending   = "PENDING"
	EntryStatusCompleted = "COMPLETED"
	EntryStatusFailed    = "FAILED"
)

// LedgerEntry is one immutable record of a balance-affecting movement.
// ExternalTxID is supplied by the caller and unique across the whole ledger,
// it deduplicates retried deliveries of the same transaction.
type LedgerEntry struct {
	ID            int64
	WalletID      uuid.UUID
	ExternalTxID  string
	OriginalTxID  *string
	Type          string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	Status        string
	CreatedAt     time.Time
}

// SignedAmount returns the entry amount with the sign of its balance effect.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.BalanceAfter.LessThan(e.BalanceBefore) {
		return e.Amount.Neg()
	}
	return e.Amount
}
