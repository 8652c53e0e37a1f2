package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Tiel0043/projecthub/minipay/api"
	"github.com/Tiel0043/projecthub/minipay/config"
	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/log"
	"github.com/Tiel0043/projecthub/minipay/memory"
	"github.com/Tiel0043/projecthub/minipay/optimistic"
	"github.com/Tiel0043/projecthub/minipay/postgres"
	"github.com/Tiel0043/projecthub/minipay/server"
	"github.com/Tiel0043/projecthub/minipay/settlement"
	"github.com/Tiel0043/projecthub/minipay/transfer"
	"github.com/Tiel0043/projecthub/minipay/user"
	"github.com/Tiel0043/projecthub/minipay/zap"
)

// stores groups the persistence contracts the services wire against.
type stores interface {
	transfer.AccountStore
	transfer.TransactionLog
	settlement.Store
	user.Store
	api.RecordSource
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	logger, err := zap.New(level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	manager := server.NewManager(logger)

	var store stores

	switch cfg.Storage {
	case config.StoragePostgres:
		conn := &postgres.Connection{
			PrimaryURL:     cfg.PrimaryDBURL,
			ReplicaURL:     cfg.ReplicaDBURL,
			DatabaseName:   "minipay",
			MigrationsPath: "minipay/postgres/migrations",
			Logger:         logger,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := conn.Connect(ctx); err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}

		manager.WithCloser(conn)
		store = postgres.NewStore(conn)
	default:
		store = memory.NewStore()
	}

	clock := ledger.SystemClock{}
	guard := optimistic.NewGuard(cfg.MaxRetries).WithLogger(logger)

	users := user.NewService(store, clock).
		WithLogger(logger).
		WithDailyLimit(cfg.DailyLimit)

	engine := transfer.NewEngine(store, store, clock).
		WithGuard(guard).
		WithLogger(logger).
		WithTopUpUnit(cfg.TopUpUnit)

	settlements := settlement.NewService(store, clock, ledger.SystemRand{}).
		WithGuard(guard).
		WithLogger(logger)

	app := api.NewApp(api.NewHandler(users, engine, settlements, store))

	return manager.
		WithHTTPServer(app, cfg.HTTPAddress).
		Run()
}
