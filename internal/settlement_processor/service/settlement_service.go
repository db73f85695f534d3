package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
)

// SettlementServiceImpl settles each active stake independently and only
// flags the event settled once none is left active. A pass that stops
// midway leaves the stragglers active for the next pass.
type SettlementServiceImpl struct {
	events   event.Repository
	catalog  event.Catalog
	stakes   stake.Repository
	outcomes OutcomeRecorder
	settler  StakeSettler
	runner   TaskRunner
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSettlementService builds the service. catalog may be nil when no event
// cache sits in front of the repository.
func NewSettlementService(
	events event.Repository,
	catalog event.Catalog,
	stakes stake.Repository,
	outcomes OutcomeRecorder,
	settler StakeSettler,
	runner TaskRunner,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SettlementServiceImpl {
	if runner == nil {
		runner = InlineRunner{}
	}
	return &SettlementServiceImpl{
		events:   events,
		catalog:  catalog,
		stakes:   stakes,
		outcomes: outcomes,
		settler:  settler,
		runner:   runner,
		metrics:  m,
		logger:   logger,
	}
}

var _ SettlementService = (*SettlementServiceImpl)(nil)

// Settle records score as the final result of the event and settles its stakes
func (s *SettlementServiceImpl) Settle(ctx context.Context, eventID uuid.UUID, score event.Score) (*SettlementResult, error) {
	return s.SettleOutcome(ctx, event.Outcome{EventID: eventID, Score: score, FinishedAt: time.Now().UTC()})
}

func (s *SettlementServiceImpl) SettleOutcome(ctx context.Context, outcome event.Outcome) (result *SettlementResult, err error) {
	start := time.Now()
	defer func() {
		label := "settled"
		switch {
		case err != nil:
			label = "error"
		case !result.Settled:
			label = "partial"
		}
		s.metrics.ObserveSettlement(label, time.Since(start))
	}()

	if err = outcome.Score.Validate(); err != nil {
		return nil, err
	}
	if outcome.FinishedAt.IsZero() {
		outcome.FinishedAt = time.Now().UTC()
	}

	logger := s.logger.With("event_id", outcome.EventID.String())

	if err = s.outcomes.RecordOutcome(ctx, outcome); err != nil {
		return nil, err
	}
	s.invalidate(ctx, outcome.EventID)

	winning := event.WinningSelection(outcome.Score)
	active, err := s.stakes.ListActiveByEvent(ctx, outcome.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active stakes for event %s: %w", outcome.EventID, err)
	}

	logger.Info("Settling event",
		"score_home", outcome.Score.Home,
		"score_away", outcome.Score.Away,
		"winning", winning,
		"active_stakes", len(active),
	)

	result = &SettlementResult{EventID: outcome.EventID, Winning: winning}
	var mu sync.Mutex
	tasks := make([]func(ctx context.Context), 0, len(active))
	for _, st := range active {
		st := st
		tasks = append(tasks, func(ctx context.Context) {
			out, err := s.settler.SettleStake(ctx, st, winning)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				logger.Error("Failed to settle stake", "stake_id", st.ID.String(), "error", err)
			case out.Skipped:
				result.Skipped++
			case out.Status == stake.StatusWon:
				result.Resolved++
				result.Won++
				result.PaidOut += out.Payout
			default:
				result.Resolved++
				result.Lost++
			}
		})
	}
	s.runner.RunAll(ctx, tasks)

	if err = s.finish(ctx, result); err != nil {
		return nil, err
	}
	if result.Settled {
		s.invalidate(ctx, outcome.EventID)
	}

	logger.Info("Settlement pass finished",
		"resolved", result.Resolved,
		"won", result.Won,
		"lost", result.Lost,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"still_pending", result.StillPending,
		"paid_out", result.PaidOut,
		"settled", result.Settled,
	)
	return result, nil
}

// invalidate drops the cached event so readers see the recorded result
func (s *SettlementServiceImpl) invalidate(ctx context.Context, id uuid.UUID) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate cached event", "event_id", id.String(), "error", err)
	}
}

// finish flags the event settled when no stake is left active
func (s *SettlementServiceImpl) finish(ctx context.Context, result *SettlementResult) error {
	settled, err := s.events.MarkSettled(ctx, result.EventID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark event %s settled: %w", result.EventID, err)
	}
	if settled {
		result.Settled = true
		return nil
	}

	pending, err := s.stakes.CountActiveByEvent(ctx, result.EventID)
	if err != nil {
		return fmt.Errorf("failed to count active stakes for event %s: %w", result.EventID, err)
	}
	result.StillPending = pending
	if pending > 0 {
		return nil
	}

	// Nothing active yet the flag did not flip: a concurrent pass got there first
	ev, err := s.events.GetByID(ctx, result.EventID)
	if err != nil {
		return fmt.Errorf("failed to reload event %s: %w", result.EventID, err)
	}
	result.Settled = ev.Settled
	return nil
}
