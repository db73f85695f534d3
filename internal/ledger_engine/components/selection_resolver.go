package components

import (
	"log/slog"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
)

type SelectionResolverImpl struct {
	logger *slog.Logger
}

func NewSelectionResolver(logger *slog.Logger) service.SelectionResolver {
	return &SelectionResolverImpl{logger: logger}
}

// Resolve checks the event accepts stakes and returns the selection with the
// odds currently offered. A quote that no longer matches is rejected.
func (r *SelectionResolverImpl) Resolve(ev *event.Event, req stake.SelectionRequest) (event.Selection, error) {
	code, err := event.ParseSelectionCode(req.Code)
	if err != nil {
		return event.Selection{}, err
	}

	if !ev.IsOpen() {
		return event.Selection{}, event.ErrEventClosed{EventID: ev.ID, Status: ev.Status}
	}

	selection, ok := ev.SelectionFor(code)
	if !ok {
		return event.Selection{}, shared.NewInvalidInput("selection", "not offered on this event")
	}

	if req.QuotedOdds != nil && !req.QuotedOdds.Equal(selection.Odds) {
		r.logger.Info("Quoted odds are stale",
			"event_id", ev.ID.String(),
			"selection", code,
			"quoted", req.QuotedOdds.String(),
			"current", selection.Odds.String(),
		)
		return event.Selection{}, shared.NewInvalidInput("odds", "odds changed to "+selection.Odds.String())
	}

	return selection, nil
}
