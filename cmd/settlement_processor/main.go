package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/oddsly-wagering-ledger/internal/data/mongo"
	"github.com/oddsly-wagering-ledger/internal/data/postgres"
	redisdata "github.com/oddsly-wagering-ledger/internal/data/redis"
	ledgercomponents "github.com/oddsly-wagering-ledger/internal/ledger_engine/components"
	"github.com/oddsly-wagering-ledger/internal/logger"
	"github.com/oddsly-wagering-ledger/internal/platform/messaging/consumers"
	"github.com/oddsly-wagering-ledger/internal/platform/messaging/producers"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/components"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/consumer"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/outbox_poller"
)

// closer is one shutdown step. Steps run in reverse order of registration.
type closer struct {
	name  string
	close func(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig("settlement_processor")
	if err != nil {
		fmt.Fprintf(os.Stderr, "settlement processor: %v\n", err)
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
	// Settlement only drops cached events once results land
	oddsCache := redisdata.NewOddsCache(log, redisClient, eventRepo, cfg.Redis.OddsTTL, m)
	store := postgres.NewAccountStore(log, postgresDB, accountRepo, m, cfg.Ledger.MaxMutationAttempts, cfg.Ledger.RetryBackoff)

	ledgerEvents, err := producers.NewLedgerEventProducer(log, &cfg.Kafka)
	if err != nil {
		fail("ledger event producer", err)
	}
	closers = append(closers, closer{"ledger event producer", func(context.Context) error { return ledgerEvents.Close() }})

	// A nil *DLQProducer must not end up inside the interface
	var dlq producers.DeadLetterPublisher
	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		fail("dlq producer", err)
	}
	if dlqProducer != nil {
		dlq = dlqProducer
		closers = append(closers, closer{"dlq producer", func(context.Context) error { return dlqProducer.Close() }})
	}

	recorder := ledgercomponents.NewEntryRecorder(ledgerRepo, outboxRepo, log.With("component", "entry_recorder"))
	settlementService, releasePool := components.CreateSettlementService(store, eventRepo, oddsCache, stakeRepo, recorder, &cfg.WorkerPool, m, log)
	closers = append(closers, closer{"worker pool", func(context.Context) error { releasePool(); return nil }})

	if metricsServer := metrics.StartServer(log, cfg.Metrics.Port, registry, persistence.HealthCheck(
		persistence.Check{Name: "postgres", Pinger: postgresDB},
		persistence.Check{Name: "mongodb", Pinger: mongoDB},
		persistence.Check{Name: "redis", Pinger: persistence.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})},
	)); metricsServer != nil {
		closers = append(closers, closer{"metrics server", metricsServer.Shutdown})
	}

	// The consumer is registered last so it closes first and no settlement
	// starts while the pool drains
	resultHandler := consumer.NewEventResultHandler(log.With("component", "event_result_handler"), settlementService, dlq)
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.EventResultTopic)
	closers = append(closers, closer{"kafka consumer", func(context.Context) error { return kafkaConsumer.Close() }})
	if err := kafkaConsumer.Subscribe(ctx, resultHandler.HandleMessage); err != nil {
		fail("kafka consumer", err)
	}

	historyPublisher := outbox_poller.NewHistoryPublisher(outboxRepo, historyRepo, ledgerEvents, log.With("component", "history_publisher"))
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, historyPublisher, m, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(ctx)
	}()

	log.Info("Settlement processor running",
		"event_result_topic", cfg.Kafka.EventResultTopic,
		"consumer_group", cfg.Kafka.ConsumerGroup,
		"workers", cfg.WorkerPool.Size,
	)
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// The poller stops on ctx; wait for its in-flight batch before closing stores
	wg.Wait()
	if !shutdown(log, cfg, closers) {
		os.Exit(1)
	}
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
		log.Info("Settlement processor stopped")
	}
	return clean
}
