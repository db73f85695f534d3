package stake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Repository defines stake persistence operations
type Repository interface {
	Create(ctx context.Context, stake *Stake) error
	GetByID(ctx context.Context, id uuid.UUID) (*Stake, error)

	// Transition is a compare-and-swap on status. It succeeds only if the
	// stored status still equals from.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, payout money.Money, settledAt time.Time) (*Stake, error)
	ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]*Stake, error)
	CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Stake, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrStakeNotFound indicates missing stake
type ErrStakeNotFound struct {
	StakeID uuid.UUID
}

func (e ErrStakeNotFound) Error() string {
	return "stake not found: " + e.StakeID.String()
}

// Is implements the errors.Is interface for ErrStakeNotFound
func (e ErrStakeNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrStakeNotFound)
	if !ok {
		return false
	}
	return t.StakeID == uuid.Nil || t.StakeID == e.StakeID
}

// ErrStakeNotActive means the status CAS lost: the stake was already resolved
type ErrStakeNotActive struct {
	StakeID uuid.UUID
	Status  Status
}

func (e ErrStakeNotActive) Error() string {
	if e.Status == "" {
		return "stake is no longer active: " + e.StakeID.String()
	}
	return "stake " + e.StakeID.String() + " is " + string(e.Status)
}

// Is implements the errors.Is interface for ErrStakeNotActive
func (e ErrStakeNotActive) Is(target error) bool {
	if target == shared.ErrConflict {
		return true
	}
	t, ok := target.(ErrStakeNotActive)
	if !ok {
		return false
	}
	return t.StakeID == uuid.Nil || t.StakeID == e.StakeID
}

// ErrDuplicateStake indicates a stake id collision
type ErrDuplicateStake struct {
	StakeID uuid.UUID
}

func (e ErrDuplicateStake) Error() string {
	return "duplicate stake: " + e.StakeID.String()
}

// Is implements the errors.Is interface for ErrDuplicateStake
func (e ErrDuplicateStake) Is(target error) bool {
	if target == shared.ErrAlreadyExists {
		return true
	}
	_, ok := target.(ErrDuplicateStake)
	return ok
}

// ErrInvalidTransition rejects transitions other than active -> terminal
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return "invalid stake transition " + string(e.From) + " -> " + string(e.To)
}

// Is implements the errors.Is interface for ErrInvalidTransition
func (e ErrInvalidTransition) Is(target error) bool {
	if target == shared.ErrInvalidInput {
		return true
	}
	_, ok := target.(ErrInvalidTransition)
	return ok
}
