package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WalletStatusActive = "ACTIVE"
	WalletStatusFrozen = "FROZEN"

	// Currency assigned to every new wallet until multi-currency lands
	DefaultCurrency = "SOL"
)

type Wallet struct {
	ID        uuid.UUID
	UserID    string
	Currency  string
	Balance   decimal.Decimal
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
