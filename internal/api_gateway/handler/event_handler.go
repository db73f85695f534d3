package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	engine "github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
	settlement "github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

// EventHandler administers the event catalog and settles finished events
type EventHandler struct {
	catalogService    engine.CatalogService
	settlementService settlement.SettlementService
	logger            *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(logger *slog.Logger, catalogService engine.CatalogService, settlementService settlement.SettlementService) *EventHandler {
	return &EventHandler{
		catalogService:    catalogService,
		settlementService: settlementService,
		logger:            logger,
	}
}

func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	selections, err := parseSelections(req.Selections)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	ev, err := h.catalogService.CreateEvent(c.Request.Context(), engine.CreateEventRequest{
		HomeTeam:   req.HomeTeam,
		AwayTeam:   req.AwayTeam,
		League:     req.League,
		StartsAt:   req.StartsAt,
		Selections: selections,
	})
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapEventToResponse(ev))
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.catalogService.ListOpenEvents(c.Request.Context())
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	response := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		response = append(response, mapEventToResponse(ev))
	}
	RespondOK(c, response)
}

func (h *EventHandler) GetByID(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	ev, err := h.catalogService.GetEvent(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEventToResponse(ev))
}

// UpdateOdds replaces the odds offered on an open event
func (h *EventHandler) UpdateOdds(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	var req UpdateOddsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	selections, err := parseSelections(req.Selections)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	ev, err := h.catalogService.UpdateOdds(c.Request.Context(), id, selections)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEventToResponse(ev))
}

func (h *EventHandler) MarkLive(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	ev, err := h.catalogService.MarkLive(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEventToResponse(ev))
}

// Settle records the final score and settles the event's stakes synchronously.
// A pass that leaves stakes active answers 200 with settled=false; repeating
// the call with the same score finishes the remainder.
func (h *EventHandler) Settle(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	var req ScoreDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.settlementService.Settle(c.Request.Context(), id, event.Score{Home: *req.Home, Away: *req.Away})
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, SettlementResponse{
		EventID:      result.EventID.String(),
		Winning:      string(result.Winning),
		Resolved:     result.Resolved,
		Won:          result.Won,
		Lost:         result.Lost,
		Skipped:      result.Skipped,
		Failed:       result.Failed,
		StillPending: result.StillPending,
		PaidOut:      result.PaidOut.Int64(),
		Settled:      result.Settled,
	})
}

func (h *EventHandler) eventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid event ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseSelections(in []SelectionDTO) ([]event.Selection, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]event.Selection, 0, len(in))
	for _, sel := range in {
		code, err := event.ParseSelectionCode(sel.Code)
		if err != nil {
			return nil, err
		}
		out = append(out, event.Selection{Code: code, Odds: sel.Odds})
	}
	return out, nil
}

func mapEventToResponse(ev *event.Event) EventResponse {
	response := EventResponse{
		ID:         ev.ID.String(),
		HomeTeam:   ev.HomeTeam,
		AwayTeam:   ev.AwayTeam,
		League:     ev.League,
		StartsAt:   ev.StartsAt.Format(time.RFC3339),
		Status:     string(ev.Status),
		Settled:    ev.Settled,
		Selections: make([]SelectionDTO, 0, len(ev.Selections)),
	}
	if ev.Score != nil {
		response.Score = &ScoreResponse{Home: ev.Score.Home, Away: ev.Score.Away}
	}
	for _, sel := range ev.Selections {
		response.Selections = append(response.Selections, SelectionDTO{Code: string(sel.Code), Odds: sel.Odds})
	}
	return response
}
