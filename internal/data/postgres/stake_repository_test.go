package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stakeColumnNames = []string{"id", "account_id", "event_id", "amount", "selection_code", "selection_odds",
	"status", "home_team", "away_team", "league", "payout", "placed_at", "settled_at"}

func stakeRow(rows *pgxmock.Rows, s *stake.Stake) *pgxmock.Rows {
	return rows.AddRow(s.ID, s.AccountID, s.EventID, s.Amount, s.Selection.Code, s.Selection.Odds.StringFixed(4),
		s.Status, s.EventSnapshot.HomeTeam, s.EventSnapshot.AwayTeam, s.EventSnapshot.League,
		s.Payout, s.PlacedAt, s.SettledAt)
}

func newTestStake() *stake.Stake {
	return &stake.Stake{
		ID:        uuid.New(),
		AccountID: "user-1",
		EventID:   uuid.New(),
		Amount:    300,
		Selection: event.Selection{Code: event.SelectionHome, Odds: decimal.RequireFromString("2.1")},
		Status:    stake.StatusActive,
		EventSnapshot: stake.Snapshot{
			HomeTeam: "Arsenal",
			AwayTeam: "Chelsea",
			League:   "EPL",
		},
		PlacedAt: time.Now().UTC(),
	}
}

func TestStakeRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StakeRepository{querier: mock, logger: newTestLogger()}
	s := newTestStake()
	query := regexp.QuoteMeta(`INSERT INTO stakes (id, account_id, event_id, amount, selection_code, selection_odds, status,`)
	args := []any{s.ID, s.AccountID, s.EventID, s.Amount, s.Selection.Code, "2.1", s.Status,
		"Arsenal", "Chelsea", "EPL", s.Payout, s.PlacedAt}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, s))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("id collision", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})

		err := repo.Create(ctx, s)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStakeRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StakeRepository{querier: mock, logger: newTestLogger()}
	s := newTestStake()
	query := regexp.QuoteMeta(`FROM stakes WHERE id = $1`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(s.ID).WillReturnRows(stakeRow(pgxmock.NewRows(stakeColumnNames), s))

		got, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.True(t, got.Selection.Odds.Equal(s.Selection.Odds))
		assert.Equal(t, s.EventSnapshot, got.EventSnapshot)
		assert.Nil(t, got.SettledAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(s.ID).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, s.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStakeRepository_Transition(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StakeRepository{querier: mock, logger: newTestLogger()}
	updateQuery := regexp.QuoteMeta(`UPDATE stakes
		SET status = $1, payout = $2, settled_at = $3
		WHERE id = $4 AND status = $5`)
	statusQuery := regexp.QuoteMeta(`SELECT status FROM stakes WHERE id = $1`)
	settledAt := time.Now().UTC()

	t.Run("active to won", func(t *testing.T) {
		s := newTestStake()
		won := *s
		won.Status = stake.StatusWon
		won.Payout = 630
		won.SettledAt = &settledAt

		mock.ExpectQuery(updateQuery).
			WithArgs(stake.StatusWon, money.Money(630), settledAt, s.ID, stake.StatusActive).
			WillReturnRows(stakeRow(pgxmock.NewRows(stakeColumnNames), &won))

		got, err := repo.Transition(ctx, s.ID, stake.StatusActive, stake.StatusWon, 630, settledAt)
		require.NoError(t, err)
		assert.Equal(t, stake.StatusWon, got.Status)
		assert.Equal(t, money.Money(630), got.Payout)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race reports current status", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(updateQuery).
			WithArgs(stake.StatusLost, money.Zero, settledAt, id, stake.StatusActive).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(statusQuery).WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(stake.StatusWon))

		_, err := repo.Transition(ctx, id, stake.StatusActive, stake.StatusLost, 0, settledAt)
		var notActive stake.ErrStakeNotActive
		require.ErrorAs(t, err, &notActive)
		assert.Equal(t, stake.StatusWon, notActive.Status)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown stake", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(updateQuery).
			WithArgs(stake.StatusVoided, money.Zero, settledAt, id, stake.StatusActive).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(statusQuery).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err := repo.Transition(ctx, id, stake.StatusActive, stake.StatusVoided, 0, settledAt)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid transition never reaches storage", func(t *testing.T) {
		_, err := repo.Transition(ctx, uuid.New(), stake.StatusWon, stake.StatusLost, 0, settledAt)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		id := uuid.New()
		dbErr := errors.New("timeout")
		mock.ExpectQuery(updateQuery).
			WithArgs(stake.StatusLost, money.Zero, settledAt, id, stake.StatusActive).
			WillReturnError(dbErr)

		_, err := repo.Transition(ctx, id, stake.StatusActive, stake.StatusLost, 0, settledAt)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStakeRepository_ActiveByEvent(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StakeRepository{querier: mock, logger: newTestLogger()}
	first, second := newTestStake(), newTestStake()
	second.EventID = first.EventID

	t.Run("list", func(t *testing.T) {
		rows := stakeRow(stakeRow(pgxmock.NewRows(stakeColumnNames), first), second)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE event_id = $1 AND status = $2`)).
			WithArgs(first.EventID, stake.StatusActive).
			WillReturnRows(rows)

		stakes, err := repo.ListActiveByEvent(ctx, first.EventID)
		require.NoError(t, err)
		require.Len(t, stakes, 2)
		assert.Equal(t, first.ID, stakes[0].ID)
		assert.Equal(t, second.ID, stakes[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM stakes WHERE event_id = $1 AND status = $2`)).
			WithArgs(first.EventID, stake.StatusActive).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

		count, err := repo.CountActiveByEvent(ctx, first.EventID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStakeRepository_ListByAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StakeRepository{querier: mock, logger: newTestLogger()}
	s := newTestStake()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE account_id = $1
		ORDER BY placed_at DESC, id DESC`)).
		WithArgs("user-1", 20).
		WillReturnRows(stakeRow(pgxmock.NewRows(stakeColumnNames), s))

	stakes, err := repo.ListByAccount(ctx, "user-1", 20)
	require.NoError(t, err)
	require.Len(t, stakes, 1)
	assert.Equal(t, "Arsenal", stakes[0].EventSnapshot.HomeTeam)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanStake_MalformedOdds(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StakeRepository{querier: mock, logger: newTestLogger()}
	s := newTestStake()
	rows := pgxmock.NewRows(stakeColumnNames).AddRow(s.ID, s.AccountID, s.EventID, s.Amount, s.Selection.Code, "n/a",
		s.Status, "A", "B", "", s.Payout, s.PlacedAt, s.SettledAt)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM stakes WHERE id = $1`)).WithArgs(s.ID).WillReturnRows(rows)

	_, err = repo.GetByID(ctx, s.ID)
	assert.ErrorContains(t, err, "malformed odds")
}
