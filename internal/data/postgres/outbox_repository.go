package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/outbox"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
)

const outboxColumns = `id, entry_id, account_id, kind, payload, status, attempts, created_at, last_attempt_at`

// OutboxRepository stores the ledger outbox. Create runs inside the ledger
// transaction through WithTx; the poller uses the pool-bound repository.
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{querier: db.Pool(), logger: logger}
}

func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{querier: tx, logger: r.logger}
}

// Create inserts message and fills in its ID. A second message for the same
// entry is rejected with ErrDuplicateMessage.
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	const query = `
		INSERT INTO ledger_outbox (entry_id, account_id, kind, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.querier.QueryRow(ctx, query,
		message.EntryID, message.AccountID, message.Kind, message.Payload,
		message.Status, message.Attempts, message.CreatedAt,
	).Scan(&message.ID)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return outbox.ErrDuplicateMessage{EntryID: message.EntryID}
	default:
		r.logger.Error("Failed to create outbox message", "entry_id", message.EntryID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
}

// GetPending returns up to limit pending messages, oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `SELECT ` + outboxColumns + `
		FROM ledger_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`

	rows, err := r.querier.Query(ctx, query, outbox.StatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*outbox.Message, 0, limit)
	for rows.Next() {
		message, err := scanOutboxMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	return r.touch(ctx, "update status", id, `
		UPDATE ledger_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3`, status, time.Now().UTC(), id)
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.touch(ctx, "record attempt", id, `
		UPDATE ledger_outbox
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2`, time.Now().UTC(), id)
}

// touch runs an UPDATE against a single message and reports a missing row as
// ErrMessageNotFound
func (r *OutboxRepository) touch(ctx context.Context, op string, id int64, query string, args ...any) error {
	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Outbox update failed", "op", op, "id", id, "error", err)
		return fmt.Errorf("outbox %s for message %d: %w", op, id, err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

// GetByEntryID returns the message written for a ledger entry
func (r *OutboxRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	query := `SELECT ` + outboxColumns + ` FROM ledger_outbox WHERE entry_id = $1`

	message, err := scanOutboxMessage(r.querier.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, outbox.ErrMessageNotFound{}
		}
		r.logger.Error("Failed to get outbox message by entry ID",
			"entry_id", entryID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get outbox message by entry ID: %w", err)
	}

	return message, nil
}

func scanOutboxMessage(row rowScanner) (*outbox.Message, error) {
	var message outbox.Message
	err := row.Scan(
		&message.ID,
		&message.EntryID,
		&message.AccountID,
		&message.Kind,
		&message.Payload,
		&message.Status,
		&message.Attempts,
		&message.CreatedAt,
		&message.LastAttemptAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}
