package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)

	// CompareAndSwap writes balance and version only if the stored version
	// still equals expectedVersion
	CompareAndSwap(ctx context.Context, account *Account, expectedVersion int) error
	WithTx(tx pgx.Tx) Repository
}

// MutateFunc computes the new state of acc inside the mutation transaction.
// Writes that must commit together with the balance use tx.
type MutateFunc func(ctx context.Context, tx pgx.Tx, acc *Account) error

// Store is the only sanctioned way to change a balance
type Store interface {
	Get(ctx context.Context, id string) (*Account, error)

	// Mutate runs read, fn, conditional write as one transaction and retries
	// the whole cycle on version conflicts up to a bounded number of attempts
	Mutate(ctx context.Context, id string, fn MutateFunc) (*Account, error)
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AccountID == "" || t.AccountID == e.AccountID
}

// ErrMutationConflict is returned once contention outlasts the retry budget
type ErrMutationConflict struct {
	AccountID string
	Attempts  int
}

func (e ErrMutationConflict) Error() string {
	return fmt.Sprintf("account %s still contended after %d attempts", e.AccountID, e.Attempts)
}

// Is implements the errors.Is interface for ErrMutationConflict
func (e ErrMutationConflict) Is(target error) bool {
	if target == shared.ErrConflict {
		return true
	}
	_, ok := target.(ErrMutationConflict)
	return ok
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID string
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == "" || t.AccountID == e.AccountID
}

// ErrAccountExists indicates the identity already owns an account
type ErrAccountExists struct {
	AccountID string
}

func (e ErrAccountExists) Error() string {
	return "account already exists: " + e.AccountID
}

// Is implements the errors.Is interface for ErrAccountExists
func (e ErrAccountExists) Is(target error) bool {
	if target == shared.ErrAlreadyExists {
		return true
	}
	_, ok := target.(ErrAccountExists)
	return ok
}

// ErrInsufficientFunds is a normal business outcome, not a fault
type ErrInsufficientFunds struct {
	AccountID string
	Balance   money.Money
	Required  money.Money
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: balance %s, required %s", e.AccountID, e.Balance, e.Required)
}

// Is implements the errors.Is interface for ErrInsufficientFunds
func (e ErrInsufficientFunds) Is(target error) bool {
	if target == shared.ErrInsufficientFunds {
		return true
	}
	_, ok := target.(ErrInsufficientFunds)
	return ok
}
