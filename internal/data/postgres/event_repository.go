package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/platform/persistence"
)

const eventColumns = `id, home_team, away_team, league, starts_at, status, settled,
		score_home, score_away, finished_at, settled_at, selections, created_at, updated_at`

// EventRepository implements the event.Repository interface for PostgreSQL.
// Selections are stored as JSONB with odds encoded as decimal strings.
type EventRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewEventRepository(logger *slog.Logger, db *persistence.PostgresDB) event.Repository {
	return &EventRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *EventRepository) WithTx(tx pgx.Tx) event.Repository {
	return &EventRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *EventRepository) Create(ctx context.Context, ev *event.Event) error {
	selections, err := json.Marshal(ev.Selections)
	if err != nil {
		return fmt.Errorf("failed to encode selections: %w", err)
	}

	query := `
		INSERT INTO events (id, home_team, away_team, league, starts_at, status, settled, selections, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.querier.Exec(ctx, query,
		ev.ID,
		ev.HomeTeam,
		ev.AwayTeam,
		ev.League,
		ev.StartsAt,
		ev.Status,
		ev.Settled,
		selections,
		ev.CreatedAt,
		ev.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create event", "event_id", ev.ID.String(), "error", err)
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

func (r *EventRepository) GetForShare(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR SHARE`, id)
}

func (r *EventRepository) get(ctx context.Context, query string, id uuid.UUID) (*event.Event, error) {
	ev, err := scanEvent(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrEventNotFound{EventID: id}
		}
		r.logger.Error("Failed to get event", "event_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// ListOpen returns events still accepting stakes, soonest first
func (r *EventRepository) ListOpen(ctx context.Context, limit int) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE NOT settled AND status IN ($1, $2)
		ORDER BY starts_at ASC, id ASC
		LIMIT $3`

	rows, err := r.querier.Query(ctx, query, event.StatusScheduled, event.StatusLive, limit)
	if err != nil {
		r.logger.Error("Failed to list open events", "error", err)
		return nil, fmt.Errorf("failed to list open events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over events: %w", err)
	}
	return events, nil
}

// UpdateSelections replaces the odds of an event that is still open
func (r *EventRepository) UpdateSelections(ctx context.Context, id uuid.UUID, selections []event.Selection) error {
	encoded, err := json.Marshal(selections)
	if err != nil {
		return fmt.Errorf("failed to encode selections: %w", err)
	}

	query := `
		UPDATE events
		SET selections = $1, updated_at = $2
		WHERE id = $3 AND NOT settled AND status <> $4
	`

	result, err := r.querier.Exec(ctx, query, encoded, time.Now().UTC(), id, event.StatusFinished)
	if err != nil {
		r.logger.Error("Failed to update event odds", "event_id", id.String(), "error", err)
		return fmt.Errorf("failed to update event odds: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	ev, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return event.ErrEventClosed{EventID: id, Status: ev.Status}
}

// MarkLive moves a scheduled event to live. Repeating it is a no-op.
func (r *EventRepository) MarkLive(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND NOT settled
	`

	result, err := r.querier.Exec(ctx, query, event.StatusLive, time.Now().UTC(), id, event.StatusScheduled)
	if err != nil {
		r.logger.Error("Failed to mark event live", "event_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark event live: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	ev, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ev.Status == event.StatusLive && !ev.Settled {
		return nil
	}
	return event.ErrInvalidStatusChange{EventID: id, To: event.StatusLive}
}

// RecordResult finishes an event with its score. Recording the same score
// twice is a no-op; a different score for a finished event is rejected.
func (r *EventRepository) RecordResult(ctx context.Context, id uuid.UUID, score event.Score, finishedAt time.Time) error {
	query := `
		UPDATE events
		SET status = $1, score_home = $2, score_away = $3, finished_at = $4, updated_at = $5
		WHERE id = $6 AND NOT settled AND status <> $1
	`

	result, err := r.querier.Exec(ctx, query,
		event.StatusFinished,
		score.Home,
		score.Away,
		finishedAt,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to record event result", "event_id", id.String(), "error", err)
		return fmt.Errorf("failed to record event result: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	ev, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ev.Settled {
		return event.ErrEventAlreadySettled{EventID: id}
	}
	if ev.Score != nil && *ev.Score == score {
		return nil
	}
	recorded := event.Score{}
	if ev.Score != nil {
		recorded = *ev.Score
	}
	return event.ErrResultMismatch{EventID: id, Recorded: recorded, Reported: score}
}

// MarkSettled flips the settled flag only when no active stake remains
func (r *EventRepository) MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error) {
	query := `
		UPDATE events
		SET settled = TRUE, settled_at = $1, updated_at = $1
		WHERE id = $2
		  AND NOT settled
		  AND status = $3
		  AND NOT EXISTS (SELECT 1 FROM stakes WHERE event_id = $2 AND status = $4)
	`

	result, err := r.querier.Exec(ctx, query, settledAt, id, event.StatusFinished, stake.StatusActive)
	if err != nil {
		r.logger.Error("Failed to mark event settled", "event_id", id.String(), "error", err)
		return false, fmt.Errorf("failed to mark event settled: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func scanEvent(row rowScanner) (*event.Event, error) {
	var (
		ev                   event.Event
		scoreHome, scoreAway *int
		selections           []byte
	)
	err := row.Scan(
		&ev.ID,
		&ev.HomeTeam,
		&ev.AwayTeam,
		&ev.League,
		&ev.StartsAt,
		&ev.Status,
		&ev.Settled,
		&scoreHome,
		&scoreAway,
		&ev.FinishedAt,
		&ev.SettledAt,
		&selections,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if scoreHome != nil && scoreAway != nil {
		ev.Score = &event.Score{Home: *scoreHome, Away: *scoreAway}
	}
	if err := json.Unmarshal(selections, &ev.Selections); err != nil {
		return nil, fmt.Errorf("event %s has malformed selections: %w", ev.ID, err)
	}
	return &ev, nil
}
