package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventColumnNames = []string{"id", "home_team", "away_team", "league", "starts_at", "status", "settled",
	"score_home", "score_away", "finished_at", "settled_at", "selections", "created_at", "updated_at"}

var selectEventQuery = regexp.QuoteMeta(`FROM events WHERE id = $1`)

func eventRows(t *testing.T, ev *event.Event) *pgxmock.Rows {
	t.Helper()
	selections, err := json.Marshal(ev.Selections)
	require.NoError(t, err)

	var scoreHome, scoreAway *int
	if ev.Score != nil {
		home, away := ev.Score.Home, ev.Score.Away
		scoreHome, scoreAway = &home, &away
	}
	return pgxmock.NewRows(eventColumnNames).AddRow(ev.ID, ev.HomeTeam, ev.AwayTeam, ev.League, ev.StartsAt,
		ev.Status, ev.Settled, scoreHome, scoreAway, ev.FinishedAt, ev.SettledAt, selections, ev.CreatedAt, ev.UpdatedAt)
}

func newTestEvent(t *testing.T) *event.Event {
	t.Helper()
	ev, err := event.NewEvent("Arsenal", "Chelsea", "EPL", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	return ev
}

func TestEventRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EventRepository{querier: mock, logger: newTestLogger()}
	ev := newTestEvent(t)

	t.Run("create", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
			WithArgs(ev.ID, "Arsenal", "Chelsea", "EPL", ev.StartsAt, event.StatusScheduled, false,
				pgxmock.AnyArg(), ev.CreatedAt, ev.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get decodes selections", func(t *testing.T) {
		mock.ExpectQuery(selectEventQuery).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		got, err := repo.GetByID(ctx, ev.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Score)
		draw, ok := got.SelectionFor(event.SelectionDraw)
		require.True(t, ok)
		assert.True(t, draw.Odds.Equal(decimal.RequireFromString("3.4")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get for share", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = $1 FOR SHARE`)).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		got, err := repo.GetForShare(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, ev.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(selectEventQuery).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_ListOpen(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EventRepository{querier: mock, logger: newTestLogger()}
	ev := newTestEvent(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE NOT settled AND status IN ($1, $2)`)).
		WithArgs(event.StatusScheduled, event.StatusLive, 100).
		WillReturnRows(eventRows(t, ev))

	events, err := repo.ListOpen(ctx, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev.ID, events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_UpdateSelections(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EventRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta(`UPDATE events
		SET selections = $1, updated_at = $2`)
	selections := event.DefaultSelections()

	t.Run("open event", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(query).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), id, event.StatusFinished).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateSelections(ctx, id, selections))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finished event is closed", func(t *testing.T) {
		ev := newTestEvent(t)
		ev.Status = event.StatusFinished
		mock.ExpectExec(query).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), ev.ID, event.StatusFinished).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(selectEventQuery).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		err := repo.UpdateSelections(ctx, ev.ID, selections)
		assert.ErrorIs(t, err, event.ErrEventClosed{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_MarkLive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EventRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta(`SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND NOT settled`)

	t.Run("scheduled to live", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(query).
			WithArgs(event.StatusLive, pgxmock.AnyArg(), id, event.StatusScheduled).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.MarkLive(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already live is a no-op", func(t *testing.T) {
		ev := newTestEvent(t)
		ev.Status = event.StatusLive
		mock.ExpectExec(query).
			WithArgs(event.StatusLive, pgxmock.AnyArg(), ev.ID, event.StatusScheduled).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(selectEventQuery).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		assert.NoError(t, repo.MarkLive(ctx, ev.ID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finished cannot go live", func(t *testing.T) {
		ev := newTestEvent(t)
		ev.Status = event.StatusFinished
		mock.ExpectExec(query).
			WithArgs(event.StatusLive, pgxmock.AnyArg(), ev.ID, event.StatusScheduled).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(selectEventQuery).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		err := repo.MarkLive(ctx, ev.ID)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_RecordResult(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EventRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta(`SET status = $1, score_home = $2, score_away = $3, finished_at = $4, updated_at = $5`)
	finishedAt := time.Now().UTC()
	score := event.Score{Home: 2, Away: 1}

	expectNoop := func(id uuid.UUID) {
		mock.ExpectExec(query).
			WithArgs(event.StatusFinished, 2, 1, finishedAt, pgxmock.AnyArg(), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	}

	t.Run("first report", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(query).
			WithArgs(event.StatusFinished, 2, 1, finishedAt, pgxmock.AnyArg(), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.RecordResult(ctx, id, score, finishedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same score again", func(t *testing.T) {
		ev := newTestEvent(t)
		ev.Status = event.StatusFinished
		ev.Score = &event.Score{Home: 2, Away: 1}
		expectNoop(ev.ID)
		mock.ExpectQuery(selectEventQuery).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		assert.NoError(t, repo.RecordResult(ctx, ev.ID, score, finishedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflicting score", func(t *testing.T) {
		ev := newTestEvent(t)
		ev.Status = event.StatusFinished
		ev.Score = &event.Score{Home: 0, Away: 0}
		expectNoop(ev.ID)
		mock.ExpectQuery(selectEventQuery).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		err := repo.RecordResult(ctx, ev.ID, score, finishedAt)
		var mismatch event.ErrResultMismatch
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, event.Score{}, mismatch.Recorded)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already settled", func(t *testing.T) {
		ev := newTestEvent(t)
		ev.Status = event.StatusFinished
		ev.Settled = true
		ev.Score = &event.Score{Home: 2, Away: 1}
		expectNoop(ev.ID)
		mock.ExpectQuery(selectEventQuery).WithArgs(ev.ID).WillReturnRows(eventRows(t, ev))

		err := repo.RecordResult(ctx, ev.ID, score, finishedAt)
		assert.ErrorIs(t, err, shared.ErrAlreadySettled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_MarkSettled(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EventRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta(`AND NOT EXISTS (SELECT 1 FROM stakes WHERE event_id = $2 AND status = $4)`)
	id := uuid.New()
	at := time.Now().UTC()

	t.Run("flips flag", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(at, id, event.StatusFinished, stake.StatusActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		settled, err := repo.MarkSettled(ctx, id, at)
		require.NoError(t, err)
		assert.True(t, settled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("active stakes remain", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(at, id, event.StatusFinished, stake.StatusActive).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		settled, err := repo.MarkSettled(ctx, id, at)
		require.NoError(t, err)
		assert.False(t, settled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
