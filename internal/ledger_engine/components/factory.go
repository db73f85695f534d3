package components

import (
	"log/slog"

	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/outbox"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
)

// Repositories groups the storage the engine works against
type Repositories struct {
	Accounts account.Repository
	Stakes   stake.Repository
	Events   event.Repository
	Ledger   ledger.Repository
	Outbox   outbox.Repository
	History  ledger.HistoryRepository
}

// CreateLedgerService creates a new LedgerService with all its dependencies.
func CreateLedgerService(
	store account.Store,
	repos Repositories,
	catalog event.Catalog,
	cfg *config.LedgerConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) service.LedgerService {
	return service.NewLedgerService(service.Dependencies{
		Store:    store,
		Accounts: repos.Accounts,
		Stakes:   repos.Stakes,
		Events:   repos.Events,
		Catalog:  catalog,
		Ledger:   repos.Ledger,
		History:  repos.History,
		Resolver: NewSelectionResolver(logger.With("component", "selection_resolver")),
		Fees:     NewFeeSchedule(cfg.CardDepositCommission, cfg.WithdrawalCommission),
		Recorder: NewEntryRecorder(repos.Ledger, repos.Outbox, logger.With("component", "entry_recorder")),
		Limits: service.Limits{
			StartingBalance: money.Money(cfg.StartingBalance),
			MinDeposit:      money.Money(cfg.MinDeposit),
			MinWithdrawal:   money.Money(cfg.MinWithdrawal),
			HistoryLimit:    cfg.HistoryLimit,
		},
		Metrics: m,
		Logger:  logger.With("component", "ledger_service"),
	})
}

// CreateCatalogService creates the event catalog administration service
func CreateCatalogService(events event.Repository, catalog event.Catalog, logger *slog.Logger) service.CatalogService {
	return service.NewCatalogService(events, catalog, logger.With("component", "catalog_service"))
}
