// Package app assembles storage and services for the retailhub binaries.
package app

import (
	"context"
	"fmt"

	"retailhub/internal/core/tx"
	"retailhub/internal/domain/auth"
	"retailhub/internal/domain/credits"
	"retailhub/internal/domain/inventory"
	"retailhub/internal/domain/products"
	"retailhub/internal/domain/reconcile"
	"retailhub/internal/infrastructure/storage/embedded"
	"retailhub/internal/infrastructure/storage/postgres"
	"retailhub/internal/infrastructure/storage/postgres/credit_repo"
	"retailhub/internal/infrastructure/storage/postgres/inventory_repo"
	"retailhub/internal/infrastructure/storage/postgres/product_repo"
	"retailhub/pkg/config"
	"retailhub/pkg/logger"
)

// Pinger checks the storage connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the wired services of one process.
type App struct {
	Config *config.Config

	Ledger    inventory.Repository
	Recorder  *inventory.Recorder
	Inspector *inventory.Inspector
	Products  *products.Service
	Credits   *credits.Service
	JWT       *auth.JWTValidator
	DB        Pinger

	// TxManager and Pool are set for the postgres driver only.
	TxManager *postgres.TxManager
	Pool      *postgres.Pool

	closers []func()
}

// Open connects to the configured storage, applies migrations and wires the
// services on top of it.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		JWT: auth.NewJWTValidator(auth.JWTConfig{
			Secret:         cfg.JWT.Secret,
			Issuer:         cfg.JWT.Issuer,
			AccessTokenTTL: cfg.JWT.TokenTTL,
		}),
	}
	ledgerCfg := inventory.Config{MaxRetries: cfg.Ledger.MaxRetries, EnforceSign: cfg.Ledger.EnforceSign}

	var err error
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		err = a.openPostgres(ctx, ledgerCfg)
	case config.StorageDriverEmbedded:
		err = a.openEmbedded(ctx, ledgerCfg)
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info(ctx, "storage ready", "driver", cfg.Storage.Driver)
	return a, nil
}

func (a *App) openPostgres(ctx context.Context, ledgerCfg inventory.Config) error {
	poolCfg := postgres.DefaultPoolConfig(a.Config.Storage.DatabaseURL)
	poolCfg.ApplicationName = a.Config.App.Name
	if a.Config.Storage.MaxConns > 0 {
		poolCfg.MaxConns = a.Config.Storage.MaxConns
	}
	poolCfg.MinConns = a.Config.Storage.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	txm := postgres.NewTxManager(pool)
	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		return err
	}

	ledger := inventory_repo.NewMovementRepo(txm)
	a.wire(ledger, txm, postgres.NewOutboxPublisher(txm), audit, ledgerCfg,
		product_repo.NewProductRepo(txm), credit_repo.NewCreditRepo(txm))
	a.DB = txm
	a.TxManager = txm
	a.Pool = pool
	return nil
}

func (a *App) openEmbedded(ctx context.Context, ledgerCfg inventory.Config) error {
	db, err := embedded.Open(ctx, a.Config.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	a.closers = append(a.closers, func() { _ = embedded.Close(db) })

	txm := embedded.NewTxManager(db)
	// The embedded driver has no outbox; events are not published.
	a.wire(embedded.NewMovementRepo(txm), txm, nil, embedded.NewAuditLog(txm), ledgerCfg,
		embedded.NewProductRepo(txm), embedded.NewCreditRepo(txm))
	a.DB = txm
	return nil
}

func (a *App) wire(
	ledger inventory.Repository,
	txm tx.Manager,
	events inventory.EventPublisher,
	audit reconcile.AuditSink,
	ledgerCfg inventory.Config,
	productRepo products.Repository,
	creditRepo credits.Repository,
) {
	a.Ledger = ledger
	a.Recorder = inventory.NewRecorder(ledger, txm, events, ledgerCfg)
	a.Products = products.NewService(productRepo, txm, a.Recorder)
	a.Inspector = inventory.NewInspector(ledger, a.Products, txm, audit)
	a.Credits = credits.NewService(creditRepo, txm, audit)
}

// Close releases storage connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

var (
	_ Pinger = (*postgres.TxManager)(nil)
	_ Pinger = (*embedded.TxManager)(nil)
)
