package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/apperrors"
	"github.com/paylane/walletsvc/internal/models"
)

type LimitRepo struct {
	DB DBTX
}

const createLimit = `-- name: CreateLimit
INSERT INTO wallet_limits (wallet_id, daily_limit, used_today, used_on)
VALUES ($1, $2, 0, $3)
RETURNING wallet_id, daily_limit, used_today, used_on
`

func (r *LimitRepo) CreateLimit(ctx context.Context, walletID uuid.UUID, dailyLimit decimal.Decimal) (models.WalletLimit, error) {
	rows, _ := r.DB.Query(ctx, createLimit, walletID, dailyLimit, time.Now())
	limit, err := pgx.CollectOneRow(rows, rowToLimit)

	if err != nil {
		return limit, fmt.Errorf("db error: %w", err)
	}

	return limit, nil
}

const getLimit = `-- name: GetLimit
SELECT wallet_id, daily_limit, used_today, used_on FROM wallet_limits
WHERE wallet_id = $1
`

func (r *LimitRepo) GetLimit(ctx context.Context, walletID uuid.UUID) (models.WalletLimit, error) {
	rows, _ := r.DB.Query(ctx, getLimit, walletID)
	limit, err := pgx.CollectOneRow(rows, rowToLimit)

	switch {
	case err == nil:
		return limit, nil
	case errors.Is(err, pgx.ErrNoRows):
		return limit, apperrors.ErrLimitNotFound
	default:
		return limit, fmt.Errorf("db error: %w", err)
	}
}

// Day rollover and consumption happen in one statement so the used-today
// counter can never leak across days between a check and an update.
const reserveLimit = `-- name: Reserve
UPDATE wallet_limits
SET used_today = CASE WHEN used_on = $2::date THEN used_today ELSE 0 END + $3,
    used_on = $2::date
WHERE wallet_id = $1
  AND (CASE WHEN used_on = $2::date THEN used_today ELSE 0 END) + $3 <= daily_limit
RETURNING wallet_id, daily_limit, used_today, used_on
`

func (r *LimitRepo) Reserve(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, asOf time.Time) (models.WalletLimit, error) {
	rows, _ := r.DB.Query(ctx, reserveLimit, walletID, asOf, amount)
	limit, err := pgx.CollectOneRow(rows, rowToLimit)

	switch {
	case err == nil:
		return limit, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Nothing updated: either the limit row is missing or the allowance
		// is exhausted. Tell them apart with a plain read.
		if _, getErr := r.GetLimit(ctx, walletID); getErr != nil {
			return limit, getErr
		}
		return limit, apperrors.ErrDailyLimitExceeded
	default:
		return limit, fmt.Errorf("db error: %w", err)
	}
}

func rowToLimit(row pgx.CollectableRow) (models.WalletLimit, error) {
	var l models.WalletLimit
	err := row.Scan(&l.WalletID, &l.DailyLimit, &l.UsedToday, &l.UsedOn)
	return l, err
}
