package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// Odds travel as text in both directions so NUMERIC never goes through a
// float conversion
const stakeColumns = `id, account_id, event_id, amount, selection_code, selection_odds::text, status,
		home_team, away_team, league, payout, placed_at, settled_at`

// StakeRepository implements the stake.Repository interface for PostgreSQL
type StakeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewStakeRepository(logger *slog.Logger, db *persistence.PostgresDB) stake.Repository {
	return &StakeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *StakeRepository) WithTx(tx pgx.Tx) stake.Repository {
	return &StakeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts an active stake
func (r *StakeRepository) Create(ctx context.Context, s *stake.Stake) error {
	query := `
		INSERT INTO stakes (id, account_id, event_id, amount, selection_code, selection_odds, status,
			home_team, away_team, league, payout, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		s.ID,
		s.AccountID,
		s.EventID,
		s.Amount,
		s.Selection.Code,
		s.Selection.Odds.String(),
		s.Status,
		s.EventSnapshot.HomeTeam,
		s.EventSnapshot.AwayTeam,
		s.EventSnapshot.League,
		s.Payout,
		s.PlacedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return stake.ErrDuplicateStake{StakeID: s.ID}
		}
		r.logger.Error("Failed to create stake",
			"stake_id", s.ID.String(),
			"account_id", s.AccountID,
			"error", err,
		)
		return fmt.Errorf("failed to create stake: %w", err)
	}

	return nil
}

func (r *StakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*stake.Stake, error) {
	query := `SELECT ` + stakeColumns + ` FROM stakes WHERE id = $1`

	s, err := scanStake(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stake.ErrStakeNotFound{StakeID: id}
		}
		r.logger.Error("Failed to get stake", "stake_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get stake: %w", err)
	}
	return s, nil
}

// Transition moves a stake from one status to another as a compare-and-set on
// the current status. Only the caller whose update matches the row wins.
func (r *StakeRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from, to stake.Status,
	payout money.Money,
	settledAt time.Time,
) (*stake.Stake, error) {
	if !stake.CanTransition(from, to) {
		return nil, stake.ErrInvalidTransition{From: from, To: to}
	}

	query := `
		UPDATE stakes
		SET status = $1, payout = $2, settled_at = $3
		WHERE id = $4 AND status = $5
		RETURNING ` + stakeColumns

	s, err := scanStake(r.querier.QueryRow(ctx, query, to, payout, settledAt, id, from))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to transition stake",
			"stake_id", id.String(),
			"from", string(from),
			"to", string(to),
			"error", err,
		)
		return nil, fmt.Errorf("failed to transition stake: %w", err)
	}

	var current stake.Status
	err = r.querier.QueryRow(ctx, `SELECT status FROM stakes WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stake.ErrStakeNotFound{StakeID: id}
		}
		return nil, fmt.Errorf("failed to read stake status: %w", err)
	}
	return nil, stake.ErrStakeNotActive{StakeID: id, Status: current}
}

// ListActiveByEvent returns the stakes still awaiting settlement, oldest first
func (r *StakeRepository) ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]*stake.Stake, error) {
	query := `SELECT ` + stakeColumns + `
		FROM stakes
		WHERE event_id = $1 AND status = $2
		ORDER BY placed_at ASC, id ASC`

	return r.list(ctx, "active stakes by event", query, eventID, stake.StatusActive)
}

func (r *StakeRepository) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM stakes WHERE event_id = $1 AND status = $2`

	var count int
	if err := r.querier.QueryRow(ctx, query, eventID, stake.StatusActive).Scan(&count); err != nil {
		r.logger.Error("Failed to count active stakes", "event_id", eventID.String(), "error", err)
		return 0, fmt.Errorf("failed to count active stakes: %w", err)
	}
	return count, nil
}

// ListByAccount returns an account's stakes, newest first
func (r *StakeRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*stake.Stake, error) {
	query := `SELECT ` + stakeColumns + `
		FROM stakes
		WHERE account_id = $1
		ORDER BY placed_at DESC, id DESC
		LIMIT $2`

	return r.list(ctx, "stakes by account", query, accountID, limit)
}

func (r *StakeRepository) list(ctx context.Context, what, query string, args ...any) ([]*stake.Stake, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list "+what, "error", err)
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	var stakes []*stake.Stake
	for rows.Next() {
		s, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stake: %w", err)
		}
		stakes = append(stakes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over stakes: %w", err)
	}
	return stakes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStake(row rowScanner) (*stake.Stake, error) {
	var (
		s    stake.Stake
		odds string
	)
	err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.EventID,
		&s.Amount,
		&s.Selection.Code,
		&odds,
		&s.Status,
		&s.EventSnapshot.HomeTeam,
		&s.EventSnapshot.AwayTeam,
		&s.EventSnapshot.League,
		&s.Payout,
		&s.PlacedAt,
		&s.SettledAt,
	)
	if err != nil {
		return nil, err
	}

	s.Selection.Odds, err = decimal.NewFromString(odds)
	if err != nil {
		return nil, fmt.Errorf("stake %s has malformed odds %q: %w", s.ID, odds, err)
	}
	return &s, nil
}
