package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Repository is the append-only transaction log. There is no update or delete.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Entry, error)
	WithTx(tx pgx.Tx) Repository
}

// HistoryRepository is the paginated read model fed from the outbox
type HistoryRepository interface {
	Upsert(ctx context.Context, entry *Entry) error
	GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID string) (int64, error)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates entry id uniqueness violation
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	if target == shared.ErrAlreadyExists {
		return true
	}
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
