package compensation

import (
	"context"
	"errors"
	"fmt"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/models"
	"github.com/paylane/walletsvc/internal/repository"
)

type balanceCache interface {
	Invalidate(ctx context.Context, userID string)
}

// Coordinator reverses a previously recorded movement. The inverse of a DEBIT
// credits the wallet back, the inverse of a CREDIT debits it. Each original
// can be compensated at most once, and a compensating debit is not allowed to
// overdraw the wallet.
//
// Consumed daily limit is intentionally NOT restored when a debit is
// compensated, a reversal affects balance only.
type Coordinator struct {
	storage repository.Storage
	cache   balanceCache
	log     logger.Logger
}

func NewCoordinator(storage repository.Storage, cache balanceCache, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Coordinator{
		storage: storage,
		cache:   cache,
		log:     log,
	}
}

func (c *Coordinator) Compensate(ctx context.Context, originalTxID string, compensationTxID string) (models.LedgerEntry, error) {
	var entry models.LedgerEntry

	if originalTxID == "" || compensationTxID == "" {
		return entry, apperrors.ErrExternalTxIDRequired
	}

	// Idempotent replay: the compensation id is an external tx id like any
	// other, a retried compensation returns the prior entry unchanged
	prior, err := c.storage.Ledger().GetByExternalID(ctx, compensationTxID)
	switch {
	case err == nil:
		return c.replay(prior, originalTxID)
	case !errors.Is(err, apperrors.ErrLedgerEntryNotFound):
		return entry, err
	}

	var userID string
	err = c.storage.InTx(ctx, func(st repository.Storage) error {
		original, err := st.Ledger().GetByExternalID(ctx, originalTxID)
		if err != nil {
			if errors.Is(err, apperrors.ErrLedgerEntryNotFound) {
				return apperrors.ErrOriginalTxNotFound
			}
			return err
		}

		// Only completed plain movements can be reversed, a compensation
		// entry is not itself a compensable original
		if original.Type == models.EntryTypeCompensation || original.Status != models.EntryStatusCompleted {
			return apperrors.ErrOriginalTxNotFound
		}

		wallet, err := st.Wallet().GetWalletByIDForUpdate(ctx, original.WalletID)
		if err != nil {
			return err
		}
		userID = wallet.UserID

		// Checked under the wallet row lock so two concurrent compensations
		// of the same original serialize here. The unique index on
		// original_tx_id backstops the race at the storage level.
		_, err = st.Ledger().GetCompensationFor(ctx, originalTxID)
		switch {
		case err == nil:
			return apperrors.ErrAlreadyCompensated
		case !errors.Is(err, apperrors.ErrLedgerEntryNotFound):
			return err
		}

		delta := original.Amount
		if original.Type == models.EntryTypeCredit {
			// Reversing a credit means debiting, which must not overdraw
			if original.Amount.GreaterThan(wallet.Balance) {
				return apperrors.ErrInsufficientFundsForCompensation
			}
			delta = original.Amount.Neg()
		}

		before := wallet.Balance

		updated, err := st.Wallet().ApplyDelta(ctx, wallet.ID, delta)
		if err != nil {
			return err
		}

		entry, err = st.Ledger().Append(ctx, repository.AppendEntryParams{
			WalletID:      wallet.ID,
			ExternalTxID:  compensationTxID,
			OriginalTxID:  &originalTxID,
			Type:          models.EntryTypeCompensation,
			Amount:        original.Amount,
			BalanceBefore: before,
			BalanceAfter:  updated.Balance,
			Description:   fmt.Sprintf("Compensation of %s", originalTxID),
			Status:        models.EntryStatusCompleted,
		})
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrDuplicateTransaction):
		// Concurrent delivery of the same compensation won, answer with its result
		prior, gerr := c.storage.Ledger().GetByExternalID(ctx, compensationTxID)
		if gerr != nil {
			return entry, gerr
		}
		return c.replay(prior, originalTxID)
	default:
		return entry, err
	}

	if c.cache != nil {
		c.cache.Invalidate(ctx, userID)
	}
	c.log.Info("compensation applied",
		"wallet_id", entry.WalletID,
		"original_tx_id", originalTxID,
		"compensation_tx_id", compensationTxID,
		"amount", entry.Amount,
	)

	return entry, nil
}

// replay answers a retried compensation with its prior entry. The entry must
// actually be the compensation of the same original, otherwise the caller
// reused the id for something else.
func (c *Coordinator) replay(prior models.LedgerEntry, originalTxID string) (models.LedgerEntry, error) {
	if prior.Type != models.EntryTypeCompensation || prior.OriginalTxID == nil || *prior.OriginalTxID != originalTxID {
		return models.LedgerEntry{}, apperrors.ErrDuplicateTransaction
	}

	c.log.Info("duplicate compensation absorbed", "compensation_tx_id", prior.ExternalTxID)

	return prior, nil
}
