package components

import (
	"log/slog"

	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

// CreateSettlementService creates a new SettlementService with all its
// dependencies. The returned release func stops the worker pool.
func CreateSettlementService(
	store account.Store,
	events event.Repository,
	catalog event.Catalog,
	stakes stake.Repository,
	recorder service.EntryRecorder,
	cfg *config.WorkerPoolConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) (service.SettlementService, func()) {
	settler := NewStakeSettler(store, stakes, recorder, m, logger.With("component", "stake_settler"))
	outcomes := NewOutcomeRecorder(events, logger.With("component", "outcome_recorder"))

	var runner service.TaskRunner = service.InlineRunner{}
	release := func() {}

	pool, err := service.NewWorkerPool(service.WorkerPoolConfig{Size: cfg.Size}, logger.With("component", "worker_pool"))
	if err != nil {
		logger.Error("Failed to create worker pool, settling stakes sequentially", "error", err)
	} else {
		logger.Info("Created settlement worker pool", "pool_size", cfg.Size)
		runner = pool
		release = pool.Shutdown
	}

	svc := service.NewSettlementService(events, catalog, stakes, outcomes, settler, runner, m, logger.With("component", "settlement_service"))
	return svc, release
}
