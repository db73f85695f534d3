package account

import (
	"strings"
	"time"

	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// MaxIDLength bounds the opaque identity handed in by the auth layer
const MaxIDLength = 128

// Account is the balance record of one user
type Account struct {
	ID        string      `json:"id"`
	Balance   money.Money `json:"balance"` // Stored in minor units
	Version   int         `json:"version"` // For optimistic locking
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewAccount creates an account holding the starting balance
func NewAccount(id string, startingBalance money.Money) (*Account, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if startingBalance.IsNegative() {
		return nil, shared.NewInvalidInput("starting_balance", "must not be negative")
	}

	now := time.Now().UTC()
	return &Account{
		ID:        id,
		Balance:   startingBalance,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateID checks the opaque account identity
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return shared.NewInvalidInput("account_id", "is required")
	}
	if len(id) > MaxIDLength {
		return shared.NewInvalidInput("account_id", "is too long")
	}
	return nil
}

// Credit adds amount to the balance
func (a *Account) Credit(amount money.Money) error {
	if !amount.IsPositive() {
		return shared.NewInvalidInput("amount", "must be positive")
	}

	balance, err := a.Balance.Add(amount)
	if err != nil {
		return err
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Debit subtracts amount from the balance. The balance never goes negative.
func (a *Account) Debit(amount money.Money) error {
	if !amount.IsPositive() {
		return shared.NewInvalidInput("amount", "must be positive")
	}
	if !a.CanDebit(amount) {
		return ErrInsufficientFunds{AccountID: a.ID, Balance: a.Balance, Required: amount}
	}

	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// CanDebit checks if the balance covers amount
func (a *Account) CanDebit(amount money.Money) bool {
	return !a.Balance.LessThan(amount)
}
