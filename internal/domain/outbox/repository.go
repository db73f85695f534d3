package outbox

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Repository manages transactional outbox message persistence
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	IncrementAttempts(ctx context.Context, id int64) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Message, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}

// Is implements the errors.Is interface for ErrMessageNotFound
func (e ErrMessageNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	_, ok := target.(ErrMessageNotFound)
	return ok
}

// ErrDuplicateMessage indicates entry uniqueness violation
type ErrDuplicateMessage struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateMessage) Error() string {
	return "duplicate outbox message: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateMessage
func (e ErrDuplicateMessage) Is(target error) bool {
	if target == shared.ErrAlreadyExists {
		return true
	}
	_, ok := target.(ErrDuplicateMessage)
	return ok
}
