// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository runs against a persistence.Querier so the same code serves
// the pool and an open transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
)

const accountColumns = `id, balance, version, created_at, updated_at`

// AccountRepository reads and writes balances. Writes go through
// CompareAndSwap so concurrent mutations of one account never interleave.
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{querier: db.Pool(), logger: logger}
}

func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{querier: tx, logger: r.logger}
}

// Create stores a new account. An existing account with the same identity
// yields account.ErrAccountExists.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	const query = `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.querier.Exec(ctx, query, acc.ID, acc.Balance, acc.Version, acc.CreatedAt, acc.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return account.ErrAccountExists{AccountID: acc.ID}
	default:
		r.logger.Error("Failed to create account", "account_id", acc.ID, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	if err := row.Scan(&acc.ID, &acc.Balance, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	return &acc, nil
}

// CompareAndSwap writes balance, version and updated_at only while the stored
// version still equals expectedVersion. Zero affected rows means another
// writer got there first.
func (r *AccountRepository) CompareAndSwap(ctx context.Context, acc *account.Account, expectedVersion int) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		expectedVersion,
	)
	if err != nil {
		if isCheckViolation(err) {
			return account.ErrInsufficientFunds{AccountID: acc.ID, Balance: acc.Balance}
		}
		r.logger.Error("Failed to update account", "account_id", acc.ID, "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}
