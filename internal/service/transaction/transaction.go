package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/models"
	"github.com/paylane/walletsvc/internal/repository"
)

type balanceCache interface {
	Invalidate(ctx context.Context, userID string)
}

// Processor applies a single credit or debit to a wallet as one atomic unit:
// lock wallet row, validate, mutate balance, consume limit (debits), append
// ledger entry. Retried deliveries of the same external transaction id are
// answered with the previously recorded result.
type Processor struct {
	storage repository.Storage
	cache   balanceCache
	log     logger.Logger

	// Injectable for daily limit window tests
	now func() time.Time
}

func NewProcessor(storage repository.Storage, cache balanceCache, log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Processor{
		storage: storage,
		cache:   cache,
		log:     log,
		now:     time.Now,
	}
}

func (p *Processor) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, externalTxID string, description string) (models.Wallet, error) {
	var wallet models.Wallet

	if err := validateMovement(amount, externalTxID); err != nil {
		return wallet, err
	}

	// Idempotent replay fast path: the transaction was already applied
	prior, err := p.storage.Ledger().GetByExternalID(ctx, externalTxID)
	switch {
	case err == nil:
		return p.replay(ctx, prior, walletID, models.EntryTypeCredit, amount)
	case !errors.Is(err, apperrors.ErrLedgerEntryNotFound):
		return wallet, err
	}

	if description == "" {
		description = "Credit requested by transaction service"
	}

	err = p.storage.InTx(ctx, func(st repository.Storage) error {
		w, err := st.Wallet().GetWalletByIDForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return apperrors.ErrWalletInactive
		}

		before := w.Balance

		wallet, err = st.Wallet().ApplyDelta(ctx, walletID, amount)
		if err != nil {
			return err
		}

		_, err = st.Ledger().Append(ctx, repository.AppendEntryParams{
			WalletID:      walletID,
			ExternalTxID:  externalTxID,
			Type:          models.EntryTypeCredit,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  wallet.Balance,
			Description:   description,
			Status:        models.EntryStatusCompleted,
		})
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrDuplicateTransaction):
		// Lost the race against a concurrent delivery of the same tx id.
		// The whole tx rolled back, answer with the winner's result.
		prior, gerr := p.storage.Ledger().GetByExternalID(ctx, externalTxID)
		if gerr != nil {
			return wallet, gerr
		}
		return p.replay(ctx, prior, walletID, models.EntryTypeCredit, amount)
	default:
		return wallet, err
	}

	p.invalidate(ctx, wallet.UserID)
	p.log.Info("credit applied", "wallet_id", walletID, "external_tx_id", externalTxID, "amount", amount)

	return wallet, nil
}

func (p *Processor) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, externalTxID string, description string) (models.Wallet, error) {
	var wallet models.Wallet

	if err := validateMovement(amount, externalTxID); err != nil {
		return wallet, err
	}

	prior, err := p.storage.Ledger().GetByExternalID(ctx, externalTxID)
	switch {
	case err == nil:
		return p.replay(ctx, prior, walletID, models.EntryTypeDebit, amount)
	case !errors.Is(err, apperrors.ErrLedgerEntryNotFound):
		return wallet, err
	}

	if description == "" {
		description = "Debit requested by transaction service"
	}

	err = p.storage.InTx(ctx, func(st repository.Storage) error {
		w, err := st.Wallet().GetWalletByIDForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return apperrors.ErrWalletInactive
		}

		// Limit first, then the overdraft check. Both run under the wallet
		// row lock so a failed debit never consumes allowance.
		if _, err := st.Limit().Reserve(ctx, walletID, amount, p.now()); err != nil {
			return err
		}

		before := w.Balance
		if amount.GreaterThan(before) {
			return apperrors.ErrInsufficientFunds
		}

		wallet, err = st.Wallet().ApplyDelta(ctx, walletID, amount.Neg())
		if err != nil {
			return err
		}

		_, err = st.Ledger().Append(ctx, repository.AppendEntryParams{
			WalletID:      walletID,
			ExternalTxID:  externalTxID,
			Type:          models.EntryTypeDebit,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  wallet.Balance,
			Description:   description,
			Status:        models.EntryStatusCompleted,
		})
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrDuplicateTransaction):
		prior, gerr := p.storage.Ledger().GetByExternalID(ctx, externalTxID)
		if gerr != nil {
			return wallet, gerr
		}
		return p.replay(ctx, prior, walletID, models.EntryTypeDebit, amount)
	default:
		return wallet, err
	}

	p.invalidate(ctx, wallet.UserID)
	p.log.Info("debit applied", "wallet_id", walletID, "external_tx_id", externalTxID, "amount", amount)

	return wallet, nil
}

// replay answers a duplicate delivery with the previously recorded result.
// The prior entry must describe the same movement, otherwise the caller is
// reusing an external tx id for a different operation and that is a conflict.
func (p *Processor) replay(ctx context.Context, prior models.LedgerEntry, walletID uuid.UUID, entryType string, amount decimal.Decimal) (models.Wallet, error) {
	if prior.WalletID != walletID || prior.Type != entryType || !prior.Amount.Equal(amount) {
		return models.Wallet{}, apperrors.ErrDuplicateTransaction
	}

	p.log.Info("duplicate delivery absorbed", "wallet_id", walletID, "external_tx_id", prior.ExternalTxID)

	return p.storage.Wallet().GetWalletByID(ctx, walletID)
}

func (p *Processor) invalidate(ctx context.Context, userID string) {
	if p.cache != nil {
		p.cache.Invalidate(ctx, userID)
	}
}

func validateMovement(amount decimal.Decimal, externalTxID string) error {
	if externalTxID == "" {
		return apperrors.ErrExternalTxIDRequired
	}
	if !amount.IsPositive() {
		return apperrors.ErrAmountNotPositive
	}
	return nil
}
