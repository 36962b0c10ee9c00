// Package app assembles the bank's service graph on either in-memory stores
// (development, tests) or PostgreSQL and Redis.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clever-bank/clever_bank/internal/bills"
	"github.com/clever-bank/clever_bank/internal/config"
	"github.com/clever-bank/clever_bank/internal/customer"
	"github.com/clever-bank/clever_bank/internal/infra"
	"github.com/clever-bank/clever_bank/internal/ledger"
	"github.com/clever-bank/clever_bank/internal/lock"
	"github.com/clever-bank/clever_bank/internal/logging"
	"github.com/clever-bank/clever_bank/internal/notification"
	"github.com/clever-bank/clever_bank/internal/payments"
	"github.com/clever-bank/clever_bank/internal/pocket"
)

// App holds the wired services and the backing connections.
type App struct {
	Config config.Config
	Logger *slog.Logger
	DB     *pgxpool.Pool
	Cache  *redis.Client

	Ledger    ledger.Ledger
	Locker    lock.Locker
	Pockets   *pocket.Service
	Customers *customer.Service
	Payments  *payments.Service
	Bills     *bills.Service
}

// New connects to the configured backends and builds the service graph.
// Empty URLs select in-memory stores, which Build only allows in development.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	var (
		db    *pgxpool.Pool
		cache *redis.Client
		err   error
	)
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return nil, err
		}
	}
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, err
		}
	}

	a, err := Build(cfg, db, cache, logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}
	return a, nil
}

// Build wires services over the given handles; nil handles select in-memory
// stores and an in-process locker.
func Build(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*App, error) {
	if !cfg.IsDev() {
		if db == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", cfg.AppEnv)
		}
		if cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", cfg.AppEnv)
		}
	}

	if logger == nil {
		logger = logging.Discard()
	}

	var (
		accountRepo  pocket.Repository
		customerRepo customer.Repository
		billRepo     bills.Repository
		led          ledger.Ledger
	)
	if db != nil {
		accountRepo = pocket.NewPostgresRepository(db)
		customerRepo = customer.NewPostgresRepository(db)
		billRepo = bills.NewPostgresRepository(db)
		led = ledger.NewPostgresLedger(db)
	} else {
		accountRepo = pocket.NewMemoryRepository()
		customerRepo = customer.NewMemoryRepository()
		billRepo = bills.NewMemoryRepository()
		led = ledger.NewInMemory()
	}

	var locker lock.Locker = lock.NewKeyed()
	if cache != nil {
		locker = lock.NewRedis(cache, cfg.LockTTL, cfg.LockWait)
	}

	notifier := notification.NewLoggerNotifier(logger)
	pockets := pocket.NewService(accountRepo, pocket.Options{
		StartingBalance: cfg.StartingBalance,
		Currency:        cfg.DefaultCurrency,
	}, logger)
	customers := customer.NewService(customerRepo, pockets, logger)
	engine := payments.NewService(accountRepo, led, customerRepo, locker, notifier, payments.Options{
		BankName:         cfg.BankName,
		BankLegalName:    cfg.BankLegalName,
		MonthlyFee:       cfg.MonthlyFee,
		StatementSize:    cfg.StatementSize,
		OperationTimeout: cfg.OperationTimeout,
	}, logger)
	billSvc := bills.NewService(billRepo, customers, pockets, engine, locker, notifier, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Cache:     cache,
		Ledger:    led,
		Locker:    locker,
		Pockets:   pockets,
		Customers: customers,
		Payments:  engine,
		Bills:     billSvc,
	}, nil
}

// Close releases the backing connections.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("close redis", "error", err)
		}
	}
}
