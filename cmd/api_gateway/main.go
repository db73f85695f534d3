package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oddsly-wagering-ledger/internal/api_gateway"
	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/oddsly-wagering-ledger/internal/data/mongo"
	"github.com/oddsly-wagering-ledger/internal/data/postgres"
	redisdata "github.com/oddsly-wagering-ledger/internal/data/redis"
	"github.com/oddsly-wagering-ledger/internal/ledger_engine/components"
	"github.com/oddsly-wagering-ledger/internal/logger"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
	settlement "github.com/oddsly-wagering-ledger/internal/settlement_processor/components"
)

// closer is one shutdown step. Steps run in reverse order of registration.
type closer struct {
	name  string
	close func(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "api gateway: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	var closers []closer
	fail := func(what string, err error) {
		log.Error("Startup failed", "step", what, "error", err)
		shutdown(log, cfg, closers)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		fail("postgres", err)
	}
	closers = append(closers, closer{"postgres", func(context.Context) error { postgresDB.Close(); return nil }})

	mongoDB, err := persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
	if err != nil {
		fail("mongodb", err)
	}
	closers = append(closers, closer{"mongodb", mongoDB.Close})

	redisClient, err := persistence.NewRedisClient(ctx, log, &cfg.Redis)
	if err != nil {
		fail("redis", err)
	}
	closers = append(closers, closer{"redis", func(context.Context) error { return redisClient.Close() }})

	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	stakeRepo := postgres.NewStakeRepository(log, postgresDB)
	eventRepo := postgres.NewEventRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())
	if err := historyRepo.EnsureIndexes(ctx); err != nil {
		log.Warn("Failed to ensure history indexes", "error", err)
	}

	store := postgres.NewAccountStore(log, postgresDB, accountRepo, m, cfg.Ledger.MaxMutationAttempts, cfg.Ledger.RetryBackoff)
	oddsCache := redisdata.NewOddsCache(log, redisClient, eventRepo, cfg.Redis.OddsTTL, m)

	ledgerService := components.CreateLedgerService(store, components.Repositories{
		Accounts: accountRepo,
		Stakes:   stakeRepo,
		Events:   eventRepo,
		Ledger:   ledgerRepo,
		Outbox:   outboxRepo,
		History:  historyRepo,
	}, oddsCache, &cfg.Ledger, m, log)
	catalogService := components.CreateCatalogService(eventRepo, oddsCache, log)

	recorder := components.NewEntryRecorder(ledgerRepo, outboxRepo, log.With("component", "entry_recorder"))
	settlementService, releasePool := settlement.CreateSettlementService(store, eventRepo, oddsCache, stakeRepo, recorder, &cfg.WorkerPool, m, log)
	closers = append(closers, closer{"worker pool", func(context.Context) error { releasePool(); return nil }})

	server := api_gateway.NewServer(log, cfg, api_gateway.Dependencies{
		Ledger:     ledgerService,
		Catalog:    catalogService,
		Settlement: settlementService,
		Gatherer:   registry,
		Health: persistence.HealthCheck(
			persistence.Check{Name: "postgres", Pinger: postgresDB},
			persistence.Check{Name: "mongodb", Pinger: mongoDB},
			persistence.Check{Name: "redis", Pinger: persistence.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			})},
		),
	})
	// Registered last so requests stop before the pool and stores close
	closers = append(closers, closer{"http server", server.Stop})

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		serveErr <- server.Start()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", "error", err)
			exitCode = 1
		}
	}

	if !shutdown(log, cfg, closers) {
		exitCode = 1
	}
	os.Exit(exitCode)
}

// shutdown runs closers newest first within the configured grace period and
// reports whether all of them succeeded
func shutdown(log *slog.Logger, cfg *config.Config, closers []closer) bool {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	clean := true
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(ctx); err != nil {
			log.Error("Shutdown step failed", "step", closers[i].name, "error", err)
			clean = false
		}
	}
	if clean {
		log.Info("API gateway stopped")
	}
	return clean
}
