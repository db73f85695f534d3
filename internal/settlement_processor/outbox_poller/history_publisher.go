package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/outbox"
	"github.com/oddsly-wagering-ledger/internal/platform/messaging/producers"
)

// LedgerPublisher publishes outbox messages to the ledger read side
type LedgerPublisher interface {
	PublishToLedger(ctx context.Context, message *outbox.Message) error
}

// HistoryPublisher projects entries into the history store and then streams
// them to Kafka. Both writes are idempotent per entry, so a message that fails
// halfway is simply published again.
type HistoryPublisher struct {
	outboxRepo outbox.Repository
	history    ledger.HistoryRepository
	events     producers.MessagePublisher // nil disables the ledger event stream
	logger     *slog.Logger
}

// NewHistoryPublisher creates a new publisher
func NewHistoryPublisher(
	outboxRepo outbox.Repository,
	history ledger.HistoryRepository,
	events producers.MessagePublisher,
	logger *slog.Logger,
) *HistoryPublisher {
	return &HistoryPublisher{
		outboxRepo: outboxRepo,
		history:    history,
		events:     events,
		logger:     logger,
	}
}

var _ LedgerPublisher = (*HistoryPublisher)(nil)

// PublishToLedger delivers one outbox message and marks it published
func (p *HistoryPublisher) PublishToLedger(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "entry_id", message.EntryID.String())

	entry, err := message.LedgerEntry()
	if err != nil {
		logger.Error("Failed to unmarshal ledger entry from outbox payload", "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailed); updateErr != nil {
			logger.Error("Failed to park undecodable outbox message", "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	if err := p.history.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to project entry %s: %w", entry.ID, err)
	}

	if p.events != nil {
		if err := p.events.Publish(ctx, entry.AccountID, entry); err != nil {
			return fmt.Errorf("failed to stream entry %s: %w", entry.ID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusPublished); err != nil {
		return fmt.Errorf("entry %s delivered but outbox %d not marked published: %w", entry.ID, message.ID, err)
	}

	logger.Debug("Ledger entry relayed", "account_id", entry.AccountID, "kind", entry.Kind)
	return nil
}
