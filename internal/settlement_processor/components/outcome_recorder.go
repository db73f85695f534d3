package components

import (
	"context"
	"log/slog"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

// OutcomeRecorderImpl implements OutcomeRecorder
type OutcomeRecorderImpl struct {
	events event.Repository
	logger *slog.Logger
}

func NewOutcomeRecorder(events event.Repository, logger *slog.Logger) service.OutcomeRecorder {
	return &OutcomeRecorderImpl{
		events: events,
		logger: logger,
	}
}

// RecordOutcome refuses settled events and moves the event to finished.
// Recording the same score twice is a no-op so an interrupted pass can resume.
func (r *OutcomeRecorderImpl) RecordOutcome(ctx context.Context, outcome event.Outcome) error {
	ev, err := r.events.GetByID(ctx, outcome.EventID)
	if err != nil {
		return err
	}
	if ev.Settled {
		r.logger.Info("Event already settled", "event_id", ev.ID.String())
		return event.ErrEventAlreadySettled{EventID: ev.ID}
	}

	if err := r.events.RecordResult(ctx, outcome.EventID, outcome.Score, outcome.FinishedAt); err != nil {
		r.logger.Warn("Failed to record event result",
			"event_id", outcome.EventID.String(),
			"score_home", outcome.Score.Home,
			"score_away", outcome.Score.Away,
			"error", err,
		)
		return err
	}
	return nil
}
