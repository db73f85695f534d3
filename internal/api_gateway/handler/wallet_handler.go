package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/oddsly-wagering-ledger/internal/api_gateway/middleware"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	engine "github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
)

// WalletHandler moves money in and out of the caller's account
type WalletHandler struct {
	ledgerService engine.LedgerService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, ledgerService engine.LedgerService) *WalletHandler {
	return &WalletHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Deposit credits the caller, net of the method's commission
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	method, err := ledger.ParseDepositMethod(req.Method)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	var opts []engine.DepositOption
	if req.CardNumber != "" {
		opts = append(opts, engine.WithCardNumber(req.CardNumber))
	}

	result, err := h.ledgerService.Deposit(c.Request.Context(), middleware.GetAccountID(c), money.Money(req.Amount), method, opts...)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapMutationToResponse(result))
}

// Withdraw debits the requested amount plus commission from the caller
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.ledgerService.Withdraw(c.Request.Context(), middleware.GetAccountID(c), money.Money(req.Amount), req.Destination)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapMutationToResponse(result))
}

func mapMutationToResponse(result *engine.MutationResult) MutationResponse {
	return MutationResponse{
		NewBalance: result.NewBalance.Int64(),
		EntryID:    result.EntryID.String(),
		Commission: result.Commission.Int64(),
	}
}
