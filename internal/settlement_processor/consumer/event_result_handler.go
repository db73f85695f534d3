package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/oddsly-wagering-ledger/internal/platform/messaging/producers"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

// ErrSettlementIncomplete makes the consumer retry the result, so the stakes
// left active are settled on a later pass
var ErrSettlementIncomplete = errors.New("settlement incomplete")

// EventResultHandler handles final match results from Kafka
type EventResultHandler struct {
	settlementService service.SettlementService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewEventResultHandler creates a new handler
func NewEventResultHandler(
	logger *slog.Logger,
	settlementService service.SettlementService,
	producer producers.DeadLetterPublisher,
) *EventResultHandler {
	return &EventResultHandler{
		settlementService: settlementService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages. A nil return commits the offset.
func (h *EventResultHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var outcome event.Outcome
	if err := json.Unmarshal(value, &outcome); err != nil {
		return h.deadLetter(ctx, key, value, "undecodable event result", err)
	}
	if outcome.EventID == uuid.Nil {
		return h.deadLetter(ctx, key, value, "invalid event result", shared.NewInvalidInput("event_id", "is required"))
	}

	logger := h.logger.With("event_id", outcome.EventID.String())
	logger.Info("Received event result",
		"score_home", outcome.Score.Home,
		"score_away", outcome.Score.Away,
	)

	result, err := h.settlementService.SettleOutcome(ctx, outcome)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrAlreadySettled):
		logger.Info("Event already settled, acknowledging redelivery")
		return nil
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrInvalidInput):
		return h.deadLetter(ctx, key, value, "unsettleable event result", err)
	default:
		logger.Error("Failed to settle event", "error", err)
		return fmt.Errorf("settling event %s failed: %w", outcome.EventID, err)
	}

	if result.StillPending > 0 {
		logger.Warn("Settlement left stakes active, retrying", "still_pending", result.StillPending)
		return fmt.Errorf("%w: event %s has %d active stakes", ErrSettlementIncomplete, outcome.EventID, result.StillPending)
	}

	logger.Info("Successfully settled event", "resolved", result.Resolved, "paid_out", result.PaidOut)
	return nil
}

// deadLetter parks a message that can never succeed. If the DLQ is not
// reachable the error is returned and the consumer retries the message.
func (h *EventResultHandler) deadLetter(ctx context.Context, key, value []byte, what string, cause error) error {
	reason := fmt.Sprintf("%s: %s", what, cause.Error())
	h.logger.Error("Rejecting event result", "message_key", string(key), "reason", reason)

	if h.producer != nil {
		dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason)
		if dlqErr == nil {
			return nil
		}
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", cause,
			"message_key", string(key),
		)
	}
	return fmt.Errorf("%s: %w", what, cause)
}
