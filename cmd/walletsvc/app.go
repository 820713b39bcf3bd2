package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paylane/walletsvc/internal/auth"
	"github.com/paylane/walletsvc/internal/cache"
	"github.com/paylane/walletsvc/internal/db"
	"github.com/paylane/walletsvc/internal/handlers"
	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/repository/postgres"
	"github.com/paylane/walletsvc/internal/service/compensation"
	"github.com/paylane/walletsvc/internal/service/transaction"
	"github.com/paylane/walletsvc/internal/service/wallet"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Balance cache is optional, the service runs fine without redis
	var balanceCache *cache.BalanceCache
	if c.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		balanceCache = cache.NewBalanceCache(rdb, 0, logger)
	}

	dailyLimit, err := decimal.NewFromString(c.DailyLimit)
	if err != nil {
		return nil, fmt.Errorf("daily limit is not a valid decimal: %w", err)
	}

	// Initialize services
	tokenManager, err := auth.New(auth.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager: %w", err)
	}

	// Keep the interface nil when redis is not configured, services check
	// their cache against nil
	var walletCache wallet.BalanceCache
	if balanceCache != nil {
		walletCache = balanceCache
	}

	walletService := wallet.NewService(wallet.Config{DefaultDailyLimit: dailyLimit}, storage, walletCache)
	processor := transaction.NewProcessor(storage, walletCache, logger)
	coordinator := compensation.NewCoordinator(storage, walletCache, logger)

	mux := handlers.NewRouter(
		walletService,
		processor,
		coordinator,
		tokenManager,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
