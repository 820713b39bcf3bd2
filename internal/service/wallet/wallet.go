package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/models"
	"github.com/paylane/walletsvc/internal/repository"
)

// BalanceCache is an optional read cache for balance lookups.
// Implementations must treat the database as the source of truth.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (models.Wallet, bool)
	Set(ctx context.Context, wallet models.Wallet)
	Invalidate(ctx context.Context, userID string)
}

type Config struct {
	// Daily debit allowance assigned to every new wallet
	// If not set the default is used
	DefaultDailyLimit decimal.Decimal
}

var defaultDailyLimit = decimal.NewFromInt(1000)

type Service struct {
	storage           repository.Storage
	cache             BalanceCache
	defaultDailyLimit decimal.Decimal
}

// NewService creates the wallet service. cache may be nil, balance reads then
// always hit the database.
func NewService(cfg Config, storage repository.Storage, cache BalanceCache) *Service {
	if cfg.DefaultDailyLimit.IsZero() {
		cfg.DefaultDailyLimit = defaultDailyLimit
	}

	return &Service{
		storage:           storage,
		cache:             cache,
		defaultDailyLimit: cfg.DefaultDailyLimit,
	}
}

// CreateWallet creates the wallet and its daily limit row in one transaction.
// Exactly one wallet per user: a second call for the same user fails with
// apperrors.ErrWalletAlreadyExists.
func (s *Service) CreateWallet(ctx context.Context, userID string) (models.Wallet, error) {
	var wallet models.Wallet

	if userID == "" {
		return wallet, apperrors.ErrUserIDRequired
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error

		wallet, err = st.Wallet().CreateWallet(ctx, userID)
		if err != nil {
			return err
		}

		_, err = st.Limit().CreateLimit(ctx, wallet.ID, s.defaultDailyLimit)
		return err
	})
	if err != nil {
		return wallet, fmt.Errorf("can't create wallet: %w", err)
	}

	return wallet, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID string) (models.Wallet, error) {
	if userID == "" {
		return models.Wallet{}, apperrors.ErrUserIDRequired
	}

	if s.cache != nil {
		if wallet, ok := s.cache.Get(ctx, userID); ok {
			return wallet, nil
		}
	}

	wallet, err := s.storage.Wallet().GetWalletByUserID(ctx, userID)
	if err != nil {
		return wallet, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, wallet)
	}

	return wallet, nil
}

func (s *Service) GetByID(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	return s.storage.Wallet().GetWalletByID(ctx, walletID)
}

// ListLedger returns the wallet movement history in ascending creation order.
func (s *Service) ListLedger(ctx context.Context, walletID uuid.UUID) ([]models.LedgerEntry, error) {
	// Ledger of an unknown wallet is NOT_FOUND, not an empty list
	if _, err := s.storage.Wallet().GetWalletByID(ctx, walletID); err != nil {
		return nil, err
	}

	return s.storage.Ledger().ListByWallet(ctx, walletID)
}
