package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
)

// LedgerRepository implements the append-only ledger.Repository for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Record appends entry. It must run on the transaction that applied the
// balance change the entry describes.
func (r *LedgerRepository) Record(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, kind, gross_amount, commission, net_amount, balance_after, status, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Kind,
		entry.GrossAmount,
		entry.Commission,
		entry.NetAmount,
		entry.BalanceAfter,
		entry.Status,
		entry.ExternalRef,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateEntry{EntryID: entry.ID}
		}
		r.logger.Error("Failed to record ledger entry",
			"entry_id", entry.ID.String(),
			"account_id", entry.AccountID,
			"error", err,
		)
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return nil
}

// ListByAccount returns the latest entries of an account, newest first
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, kind, gross_amount, commission, net_amount, balance_after, status, external_ref, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.Entry, 0, limit)
	for rows.Next() {
		var entry ledger.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Kind,
			&entry.GrossAmount,
			&entry.Commission,
			&entry.NetAmount,
			&entry.BalanceAfter,
			&entry.Status,
			&entry.ExternalRef,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}
