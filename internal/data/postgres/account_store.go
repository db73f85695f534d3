package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
)

// AccountStore implements account.Store with optimistic versioning over
// AccountRepository.CompareAndSwap
type AccountStore struct {
	tx          persistence.TxRunner
	accounts    account.Repository
	logger      *slog.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	backoff     time.Duration
}

var _ account.Store = (*AccountStore)(nil)

func NewAccountStore(
	logger *slog.Logger,
	tx persistence.TxRunner,
	accounts account.Repository,
	m *metrics.Metrics,
	maxAttempts int,
	backoff time.Duration,
) *AccountStore {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &AccountStore{
		tx:          tx,
		accounts:    accounts,
		logger:      logger,
		metrics:     m,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

func (s *AccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// Mutate reads the account, lets fn modify it and write companion rows on the
// same transaction, then swaps the balance in conditionally on the version it
// read. Version conflicts and transient storage errors replay the whole cycle;
// any other error from fn or storage is returned as is.
func (s *AccountStore) Mutate(ctx context.Context, id string, fn account.MutateFunc) (*account.Account, error) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var updated *account.Account
		err := s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
			repo := s.accounts.WithTx(tx)

			acc, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			expectedVersion := acc.Version

			if err := fn(ctx, tx, acc); err != nil {
				return err
			}

			acc.Version = expectedVersion + 1
			acc.UpdatedAt = time.Now().UTC()
			if err := repo.CompareAndSwap(ctx, acc, expectedVersion); err != nil {
				return err
			}
			updated = acc
			return nil
		})
		if err == nil {
			s.metrics.ObserveMutation("ok", time.Since(start))
			return updated, nil
		}

		reason := retryReason(err)
		if reason == "" {
			s.metrics.ObserveMutation(shared.Category(err), time.Since(start))
			return nil, err
		}
		lastErr = err

		if attempt == s.maxAttempts {
			break
		}
		s.metrics.IncMutationRetry(reason)
		s.logger.Debug("Retrying account mutation",
			"account_id", id,
			"attempt", attempt,
			"reason", reason,
			"error", err,
		)
		if err := sleepCtx(ctx, s.backoff*time.Duration(attempt)); err != nil {
			return nil, fmt.Errorf("%w: account %s: %w", shared.ErrUnavailable, id, err)
		}
	}

	if errors.Is(lastErr, account.ErrConcurrentModification{}) {
		s.metrics.ObserveMutation("conflict", time.Since(start))
		s.logger.Warn("Account mutation gave up after repeated conflicts",
			"account_id", id,
			"attempts", s.maxAttempts,
		)
		return nil, account.ErrMutationConflict{AccountID: id, Attempts: s.maxAttempts}
	}

	s.metrics.ObserveMutation("unavailable", time.Since(start))
	s.logger.Error("Account mutation failed on storage",
		"account_id", id,
		"attempts", s.maxAttempts,
		"error", lastErr,
	)
	return nil, fmt.Errorf("%w: account %s: %w", shared.ErrUnavailable, id, lastErr)
}

func retryReason(err error) string {
	switch {
	case errors.Is(err, account.ErrConcurrentModification{}):
		return "conflict"
	case isTransient(err):
		return "transient"
	default:
		return ""
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
