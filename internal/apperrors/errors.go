package apperrors

import (
	"errors"
)

var (
	ErrWalletAlreadyExists = errors.New("wallet already exists for this user")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletInactive      = errors.New("wallet is not active")

	ErrAmountNotPositive    = errors.New("amount must be positive")
	ErrUserIDRequired       = errors.New("user id is required")
	ErrExternalTxIDRequired = errors.New("external transaction id is required")

	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDailyLimitExceeded = errors.New("daily debit limit exceeded")
	ErrLimitNotFound      = errors.New("wallet limit not found")

	// The ledger already holds an entry with the same external transaction id.
	// Callers must answer with the previously recorded result, not a fresh mutation.
	ErrDuplicateTransaction = errors.New("external transaction already recorded")

	ErrLedgerEntryNotFound = errors.New("ledger entry not found")

	ErrOriginalTxNotFound               = errors.New("original transaction not found")
	ErrAlreadyCompensated               = errors.New("transaction already compensated")
	ErrInsufficientFundsForCompensation = errors.New("insufficient funds for compensation")
)
