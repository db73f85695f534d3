package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddsly-wagering-ledger/internal/config"
	"github.com/oddsly-wagering-ledger/internal/domain/outbox"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
)

// Poller relays committed ledger entries from the outbox to the read side.
// Messages are delivered at least once; a message that keeps failing is
// parked as FAILED after maxAttempts deliveries.
type Poller struct {
	outboxRepo      outbox.Repository
	ledgerPublisher LedgerPublisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	interval        time.Duration
	batchSize       int
	maxAttempts     int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	ledgerPublisher LedgerPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:      outboxRepo,
		ledgerPublisher: ledgerPublisher,
		metrics:         m,
		logger:          logger.With("component", "outbox_poller"),
		interval:        cfg.PollingInterval,
		batchSize:       cfg.BatchSize,
		maxAttempts:     cfg.MaxRetryAttempts,
	}
}

// Start drains the outbox once and then on every tick until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Outbox poller started",
		"interval", p.interval.String(),
		"batch_size", p.batchSize,
		"max_attempts", p.maxAttempts,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.drain(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// drain keeps fetching while batches come back full, so a backlog is cleared
// without waiting a tick per batch
func (p *Poller) drain(ctx context.Context) {
	for ctx.Err() == nil {
		fetched, err := p.relayBatch(ctx)
		if err != nil {
			p.logger.Error("Outbox batch failed", "error", err)
			return
		}
		if fetched < p.batchSize {
			return
		}
	}
}

// relayBatch delivers one batch of pending messages and returns how many
// were fetched
func (p *Poller) relayBatch(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		p.relay(ctx, msg)
	}
	return len(messages), nil
}

func (p *Poller) relay(ctx context.Context, msg *outbox.Message) {
	err := p.ledgerPublisher.PublishToLedger(ctx, msg)
	if err == nil {
		p.metrics.IncOutbox("published")
		return
	}

	logger := p.logger.With("outbox_id", msg.ID, "entry_id", msg.EntryID.String())
	logger.Warn("Outbox delivery failed", "attempts", msg.Attempts, "error", err)
	p.metrics.IncOutbox("retry")

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		logger.Error("Failed to record outbox attempt", "error", err)
		return
	}
	msg.RecordAttempt()

	if !msg.Exhausted(p.maxAttempts) {
		return
	}
	logger.Error("Outbox message exhausted its attempts, parking it", "attempts", msg.Attempts)
	p.metrics.IncOutbox("failed")
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailed); err != nil {
		logger.Error("Failed to park outbox message", "error", err)
	}
}
