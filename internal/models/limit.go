package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletLimit tracks the per-wallet daily debit allowance.
// UsedToday is only meaningful together with UsedOn: when the dates differ
// the counter is considered rolled over to zero.
type WalletLimit struct {
	WalletID   uuid.UUID
	DailyLimit decimal.Decimal
	UsedToday  decimal.Decimal
	UsedOn     time.Time
}
