package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/outbox"
)

// EntryRecorderImpl appends to the transaction log and queues the entry for
// the history projection in the caller's transaction
type EntryRecorderImpl struct {
	ledgerRepo ledger.Repository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewEntryRecorder(ledgerRepo ledger.Repository, outboxRepo outbox.Repository, logger *slog.Logger) *EntryRecorderImpl {
	return &EntryRecorderImpl{
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

func (r *EntryRecorderImpl) Record(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) error {
	if err := r.ledgerRepo.WithTx(tx).Record(ctx, entry); err != nil {
		return err
	}

	message, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to create outbox message for entry %s: %w", entry.ID, err)
	}

	if err := r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		r.logger.Error("Failed to create outbox message",
			"entry_id", entry.ID.String(),
			"account_id", entry.AccountID,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for entry %s: %w", entry.ID, err)
	}

	r.logger.Debug("Ledger entry recorded",
		"entry_id", entry.ID.String(),
		"account_id", entry.AccountID,
		"kind", entry.Kind,
		"net", entry.NetAmount,
		"balance_after", entry.BalanceAfter,
	)
	return nil
}
