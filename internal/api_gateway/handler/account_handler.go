package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oddsly-wagering-ledger/internal/api_gateway/middleware"
	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	engine "github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
)

// AccountHandler serves the caller's own account, stakes and entries
type AccountHandler struct {
	ledgerService engine.LedgerService
	logger        *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, ledgerService engine.LedgerService) *AccountHandler {
	return &AccountHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Open creates the caller's account with the starting balance
func (h *AccountHandler) Open(c *gin.Context) {
	acc, err := h.ledgerService.OpenAccount(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapAccountToResponse(acc))
}

// Me returns the caller's balance
func (h *AccountHandler) Me(c *gin.Context) {
	acc, err := h.ledgerService.GetAccount(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapAccountToResponse(acc))
}

// Stakes lists the caller's stakes, newest first
func (h *AccountHandler) Stakes(c *gin.Context) {
	stakes, err := h.ledgerService.ListStakesByAccount(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	response := make([]StakeResponse, 0, len(stakes))
	for _, st := range stakes {
		response = append(response, mapStakeToResponse(st))
	}
	RespondOK(c, response)
}

// Ledger returns the latest transaction log entries of the caller
func (h *AccountHandler) Ledger(c *gin.Context) {
	entries, err := h.ledgerService.ListLedgerEntries(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEntriesToResponse(entries))
}

// History pages through the full audit trail kept in the read model
func (h *AccountHandler) History(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	page, err := h.ledgerService.ListHistory(c.Request.Context(), middleware.GetAccountID(c), params.Page, params.PerPage)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, mapEntriesToResponse(page.Entries), page.Page, page.PageSize, int(page.Total))
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID,
		Balance:   acc.Balance.Int64(),
		Version:   acc.Version,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapStakeToResponse(st *stake.Stake) StakeResponse {
	response := StakeResponse{
		ID:        st.ID.String(),
		EventID:   st.EventID.String(),
		Amount:    st.Amount.Int64(),
		Selection: SelectionDTO{Code: string(st.Selection.Code), Odds: st.Selection.Odds},
		Status:    string(st.Status),
		Payout:    st.Payout.Int64(),
		Event: SnapshotResponse{
			HomeTeam: st.EventSnapshot.HomeTeam,
			AwayTeam: st.EventSnapshot.AwayTeam,
			League:   st.EventSnapshot.League,
		},
		PlacedAt: st.PlacedAt.Format(time.RFC3339),
	}
	if st.SettledAt != nil {
		response.SettledAt = st.SettledAt.Format(time.RFC3339)
	}
	return response
}

func mapEntriesToResponse(entries []*ledger.Entry) []EntryResponse {
	response := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, EntryResponse{
			ID:           e.ID.String(),
			Kind:         string(e.Kind),
			GrossAmount:  e.GrossAmount.Int64(),
			Commission:   e.Commission.Int64(),
			NetAmount:    e.NetAmount.Int64(),
			BalanceAfter: e.BalanceAfter.Int64(),
			Status:       string(e.Status),
			ExternalRef:  e.ExternalRef,
			CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		})
	}
	return response
}
