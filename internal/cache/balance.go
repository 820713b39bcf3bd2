package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/models"
)

const (
	balanceKeyPrefix = "wallet:balance:v1:"
	defaultTTL       = 30 * time.Second
)

// BalanceCache keeps short lived wallet snapshots in redis to take read
// pressure off the balance endpoint. The database stays the source of truth:
// every mutation invalidates the snapshot, and any redis failure degrades to
// a cache miss.
type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

// NewClient configures a redis client and verifies connectivity
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func NewBalanceCache(rdb *redis.Client, ttl time.Duration, log logger.Logger) *BalanceCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &BalanceCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *BalanceCache) Get(ctx context.Context, userID string) (models.Wallet, bool) {
	var wallet models.Wallet

	raw, err := c.rdb.Get(ctx, balanceKeyPrefix+userID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("balance cache read failed", "user_id", userID, "error", err)
		}
		return wallet, false
	}

	if err := json.Unmarshal(raw, &wallet); err != nil {
		c.log.Warn("balance cache entry corrupted, dropping", "user_id", userID, "error", err)
		c.Invalidate(ctx, userID)
		return wallet, false
	}

	return wallet, true
}

func (c *BalanceCache) Set(ctx context.Context, wallet models.Wallet) {
	raw, err := json.Marshal(wallet)
	if err != nil {
		c.log.Warn("balance cache encode failed", "user_id", wallet.UserID, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, balanceKeyPrefix+wallet.UserID, raw, c.ttl).Err(); err != nil {
		c.log.Warn("balance cache write failed", "user_id", wallet.UserID, "error", err)
	}
}

func (c *BalanceCache) Invalidate(ctx context.Context, userID string) {
	if err := c.rdb.Del(ctx, balanceKeyPrefix+userID).Err(); err != nil {
		c.log.Warn("balance cache invalidate failed", "user_id", userID, "error", err)
	}
}
