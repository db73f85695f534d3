package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oddsly-wagering-ledger/internal/api_gateway/middleware"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	engine "github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
)

// StakeHandler places and voids stakes
type StakeHandler struct {
	ledgerService engine.LedgerService
	logger        *slog.Logger
}

// NewStakeHandler creates a new stake handler
func NewStakeHandler(logger *slog.Logger, ledgerService engine.LedgerService) *StakeHandler {
	return &StakeHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Place debits the stake amount and records the stake at the current odds
func (h *StakeHandler) Place(c *gin.Context) {
	var req PlaceStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		RespondBadRequest(c, "Invalid event ID")
		return
	}

	selection := stake.SelectionRequest{Code: req.Selection, QuotedOdds: req.QuotedOdds}
	result, err := h.ledgerService.PlaceStake(c.Request.Context(), middleware.GetAccountID(c), eventID, selection, money.Money(req.Amount))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, PlaceStakeResponse{
		StakeID:    result.StakeID.String(),
		Odds:       result.Odds,
		NewBalance: result.NewBalance.Int64(),
		EntryID:    result.EntryID.String(),
	})
}

// Void cancels an active stake and refunds its amount
func (h *StakeHandler) Void(c *gin.Context) {
	stakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid stake ID")
		return
	}

	var req VoidStakeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.ledgerService.VoidStake(c.Request.Context(), stakeID, req.Reason)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapMutationToResponse(result))
}
