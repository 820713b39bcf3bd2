package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/paylane/walletsvc/internal/auth"
	"github.com/paylane/walletsvc/internal/handlers"
	"github.com/paylane/walletsvc/internal/logger"
	"github.com/paylane/walletsvc/internal/repository"
	"github.com/paylane/walletsvc/internal/repository/postgres"
	"github.com/paylane/walletsvc/internal/service/compensation"
	"github.com/paylane/walletsvc/internal/service/transaction"
	"github.com/paylane/walletsvc/internal/service/wallet"
	"github.com/paylane/walletsvc/internal/testutil"
)

type Services struct {
	WalletService *wallet.Service
	Processor     *transaction.Processor
	Coordinator   *compensation.Coordinator
	TokenManager  *auth.TokenManager
	Storage       repository.Storage
}

// Create db transaction and run the full server on that connection (one
// connection cause one transaction). The transaction is passed to the inner
// function, so you can safely use testutil.InTx with it.
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		// Initialize repositories
		storage := postgres.NewStorage(tx)

		// Initialize production services
		tokenManager, err := auth.New(auth.Config{SecretKey: "test-secret"})
		require.NoError(t, err, "token manager should be created without errors")

		ws := wallet.NewService(wallet.Config{}, storage, nil)
		p := transaction.NewProcessor(storage, nil, nil)
		c := compensation.NewCoordinator(storage, nil, nil)

		// Complete all together as router
		router := handlers.NewRouter(ws, p, c, tokenManager, logger.NewNoOpLogger())

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			WalletService: ws,
			Processor:     p,
			Coordinator:   c,
			TokenManager:  tokenManager,
			Storage:       storage,
		})
	})
}
