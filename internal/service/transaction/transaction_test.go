package transaction

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/models"
	"github.com/paylane/walletsvc/internal/repository"
	"github.com/paylane/walletsvc/internal/repository/postgres"
	"github.com/paylane/walletsvc/internal/testutil"
)

func TestProcessor(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Every subtest runs inside a rolled back transaction, the processor's own
	// InTx then opens savepoints on top of it
	inTx := func(t *testing.T, fn func(tx pgx.Tx, p *Processor, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(tx, NewProcessor(storage, nil, nil), storage)
		})
	}

	createWallet := func(t *testing.T, storage repository.Storage, dailyLimit int64) models.Wallet {
		t.Helper()

		wallet, err := storage.Wallet().CreateWallet(t.Context(), "user-1")
		require.NoError(t, err)
		_, err = storage.Limit().CreateLimit(t.Context(), wallet.ID, decimal.NewFromInt(dailyLimit))
		require.NoError(t, err)

		return wallet
	}

	t.Run("credit debit compensate scenario", func(t *testing.T) {
		inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
			wallet := createWallet(t, storage, 1000)

			w, err := p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(50), "tx-1", "")
			require.NoError(t, err)
			require.True(t, w.Balance.Equal(decimal.NewFromInt(50)))

			w, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(20), "tx-2", "")
			require.NoError(t, err)
			require.True(t, w.Balance.Equal(decimal.NewFromInt(30)))

			_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(100), "tx-3", "")
			require.ErrorIs(t, err, apperrors.ErrInsufficientFunds, "debit over the balance must fail")

			w, err = storage.Wallet().GetWalletByID(t.Context(), wallet.ID)
			require.NoError(t, err)
			require.True(t, w.Balance.Equal(decimal.NewFromInt(30)), "failed debit must not move the balance")

			entries, err := storage.Ledger().ListByWallet(t.Context(), wallet.ID)
			require.NoError(t, err)
			require.Len(t, entries, 2, "failed debit must not be recorded")
		})
	})

	t.Run("validation", func(t *testing.T) {
		inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
			wallet := createWallet(t, storage, 1000)

			_, err := p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(10), "", "")
			require.ErrorIs(t, err, apperrors.ErrExternalTxIDRequired)

			_, err = p.Credit(t.Context(), wallet.ID, decimal.Zero, "tx-1", "")
			require.ErrorIs(t, err, apperrors.ErrAmountNotPositive)

			_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(-5), "tx-1", "")
			require.ErrorIs(t, err, apperrors.ErrAmountNotPositive)

			_, err = p.Credit(t.Context(), uuid.New(), decimal.NewFromInt(10), "tx-1", "")
			require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
		})
	})

	t.Run("inactive wallet", func(t *testing.T) {
		inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
			wallet := createWallet(t, storage, 1000)

			_, err := tx.Exec(t.Context(), "UPDATE wallets SET status = 'FROZEN' WHERE id = $1", wallet.ID)
			require.NoError(t, err)

			_, err = p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(10), "tx-1", "")
			require.ErrorIs(t, err, apperrors.ErrWalletInactive)

			_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(10), "tx-2", "")
			require.ErrorIs(t, err, apperrors.ErrWalletInactive)
		})
	})

	t.Run("idempotent replay", func(t *testing.T) {
		t.Run("same movement returns recorded result", func(t *testing.T) {
			inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
				wallet := createWallet(t, storage, 1000)

				w, err := p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(50), "tx-1", "")
				require.NoError(t, err)
				require.True(t, w.Balance.Equal(decimal.NewFromInt(50)))

				w, err = p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(50), "tx-1", "")
				require.NoError(t, err, "retried delivery must succeed")
				require.True(t, w.Balance.Equal(decimal.NewFromInt(50)), "balance must be applied exactly once")

				entries, err := storage.Ledger().ListByWallet(t.Context(), wallet.ID)
				require.NoError(t, err)
				require.Len(t, entries, 1, "retry must not append a second entry")
			})
		})

		t.Run("reused id for a different movement is a conflict", func(t *testing.T) {
			inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
				wallet := createWallet(t, storage, 1000)

				_, err := p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(50), "tx-1", "")
				require.NoError(t, err)

				_, err = p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(99), "tx-1", "")
				require.ErrorIs(t, err, apperrors.ErrDuplicateTransaction, "different amount under a known id is a conflict")

				_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(50), "tx-1", "")
				require.ErrorIs(t, err, apperrors.ErrDuplicateTransaction, "different type under a known id is a conflict")
			})
		})
	})

	t.Run("daily limit", func(t *testing.T) {
		t.Run("exhaustion", func(t *testing.T) {
			inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
				wallet := createWallet(t, storage, 100)

				_, err := p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(500), "tx-1", "")
				require.NoError(t, err)

				_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(80), "tx-2", "")
				require.NoError(t, err)

				_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(30), "tx-3", "")
				require.ErrorIs(t, err, apperrors.ErrDailyLimitExceeded)

				w, err := storage.Wallet().GetWalletByID(t.Context(), wallet.ID)
				require.NoError(t, err)
				require.True(t, w.Balance.Equal(decimal.NewFromInt(420)), "rejected debit must not move the balance")

				limit, err := storage.Limit().GetLimit(t.Context(), wallet.ID)
				require.NoError(t, err)
				require.True(t, limit.UsedToday.Equal(decimal.NewFromInt(80)), "rejected debit must not consume allowance")
			})
		})

		t.Run("resets next day", func(t *testing.T) {
			inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
				wallet := createWallet(t, storage, 100)

				_, err := p.Credit(t.Context(), wallet.ID, decimal.NewFromInt(500), "tx-1", "")
				require.NoError(t, err)

				day := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
				p.now = func() time.Time { return day }

				_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(100), "tx-2", "")
				require.NoError(t, err)

				_, err = p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(1), "tx-3", "")
				require.ErrorIs(t, err, apperrors.ErrDailyLimitExceeded)

				p.now = func() time.Time { return day.AddDate(0, 0, 1) }

				w, err := p.Debit(t.Context(), wallet.ID, decimal.NewFromInt(100), "tx-4", "")
				require.NoError(t, err, "next day the allowance starts fresh")
				require.True(t, w.Balance.Equal(decimal.NewFromInt(300)))
			})
		})
	})

	t.Run("ledger signed sum equals balance", func(t *testing.T) {
		inTx(t, func(tx pgx.Tx, p *Processor, storage repository.Storage) {
			wallet := createWallet(t, storage, 100000)

			rnd := rand.New(rand.NewSource(42))
			for i := range 25 {
				amount := decimal.NewFromInt(rnd.Int63n(200) + 1)
				txID := uuid.NewString()

				var err error
				if rnd.Intn(2) == 0 {
					_, err = p.Credit(t.Context(), wallet.ID, amount, txID, "")
				} else {
					_, err = p.Debit(t.Context(), wallet.ID, amount, txID, "")
				}
				if err != nil {
					// Overdrafts are expected with random amounts, anything else is a bug
					require.ErrorIs(t, err, apperrors.ErrInsufficientFunds, "unexpected error on movement %d", i)
				}
			}

			w, err := storage.Wallet().GetWalletByID(t.Context(), wallet.ID)
			require.NoError(t, err)

			entries, err := storage.Ledger().ListByWallet(t.Context(), wallet.ID)
			require.NoError(t, err)

			sum := decimal.Zero
			for _, e := range entries {
				sum = sum.Add(e.SignedAmount())
			}
			require.True(t, sum.Equal(w.Balance), "signed entry sum %s must equal balance %s", sum, w.Balance)

			// And every entry must chain onto the previous one
			prev := decimal.Zero
			for _, e := range entries {
				require.True(t, e.BalanceBefore.Equal(prev), "entry %s must start where the previous one ended", e.ExternalTxID)
				prev = e.BalanceAfter
			}
		})
	})
}
