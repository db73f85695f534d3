package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Repository defines event persistence operations
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// GetForShare reads the event under a share lock so a concurrent result
	// recording waits for in-flight placements. Must run inside a transaction.
	GetForShare(ctx context.Context, id uuid.UUID) (*Event, error)
	ListOpen(ctx context.Context, limit int) ([]*Event, error)
	UpdateSelections(ctx context.Context, id uuid.UUID, selections []Selection) error
	MarkLive(ctx context.Context, id uuid.UUID) error

	// RecordResult moves an unsettled event to finished with its score
	RecordResult(ctx context.Context, id uuid.UUID, score Score, finishedAt time.Time) error

	// MarkSettled sets the settled flag only if no stake on the event is still
	// active. It reports whether this call flipped the flag.
	MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error)
	WithTx(tx pgx.Tx) Repository
}

// Catalog serves event odds to stake placement
type Catalog interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// ErrEventNotFound indicates missing event
type ErrEventNotFound struct {
	EventID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "event not found: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrEventNotFound
func (e ErrEventNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	return t.EventID == uuid.Nil || t.EventID == e.EventID
}

// ErrEventAlreadySettled is the settlement guard
type ErrEventAlreadySettled struct {
	EventID uuid.UUID
}

func (e ErrEventAlreadySettled) Error() string {
	return "event already settled: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrEventAlreadySettled
func (e ErrEventAlreadySettled) Is(target error) bool {
	if target == shared.ErrAlreadySettled {
		return true
	}
	t, ok := target.(ErrEventAlreadySettled)
	if !ok {
		return false
	}
	return t.EventID == uuid.Nil || t.EventID == e.EventID
}

// ErrEventClosed rejects stakes on events that are finished or settled
type ErrEventClosed struct {
	EventID uuid.UUID
	Status  Status
}

func (e ErrEventClosed) Error() string {
	return "event " + e.EventID.String() + " is closed for betting (" + string(e.Status) + ")"
}

// Is implements the errors.Is interface for ErrEventClosed
func (e ErrEventClosed) Is(target error) bool {
	if target == shared.ErrInvalidInput {
		return true
	}
	_, ok := target.(ErrEventClosed)
	return ok
}

// ErrResultMismatch rejects a score that differs from the recorded result
type ErrResultMismatch struct {
	EventID  uuid.UUID
	Recorded Score
	Reported Score
}

func (e ErrResultMismatch) Error() string {
	return "event " + e.EventID.String() + " already finished with a different score"
}

// Is implements the errors.Is interface for ErrResultMismatch
func (e ErrResultMismatch) Is(target error) bool {
	if target == shared.ErrInvalidInput {
		return true
	}
	_, ok := target.(ErrResultMismatch)
	return ok
}

// ErrInvalidStatusChange rejects lifecycle moves the event cannot make
type ErrInvalidStatusChange struct {
	EventID uuid.UUID
	To      Status
}

func (e ErrInvalidStatusChange) Error() string {
	return "event " + e.EventID.String() + " cannot move to " + string(e.To)
}

// Is implements the errors.Is interface for ErrInvalidStatusChange
func (e ErrInvalidStatusChange) Is(target error) bool {
	if target == shared.ErrConflict {
		return true
	}
	_, ok := target.(ErrInvalidStatusChange)
	return ok
}
