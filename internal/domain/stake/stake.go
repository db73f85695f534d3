package stake

import (
	"time"

	"github.com/google/uuid"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the stake lifecycle state
type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
	StatusVoided Status = "voided"
)

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusVoided
}

// CanTransition allows only active -> {won, lost, voided}
func CanTransition(from, to Status) bool {
	return from == StatusActive && to.IsTerminal()
}

// Snapshot is the display metadata copied from the event at placement
type Snapshot struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	League   string `json:"league"`
}

// Stake is a single fixed-odds wager
type Stake struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     string          `json:"account_id"`
	EventID       uuid.UUID       `json:"event_id"`
	Amount        money.Money     `json:"amount"`
	Selection     event.Selection `json:"selection"`
	Status        Status          `json:"status"`
	EventSnapshot Snapshot        `json:"event_snapshot"`
	Payout        money.Money     `json:"payout"`
	PlacedAt      time.Time       `json:"placed_at"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
}

// NewStake creates an active stake. The selection must already carry the
// odds resolved at placement time.
func NewStake(accountID string, ev *event.Event, selection event.Selection, amount money.Money) (*Stake, error) {
	if !amount.IsPositive() {
		return nil, shared.NewInvalidInput("amount", "must be positive")
	}
	if !selection.Odds.IsPositive() {
		return nil, shared.NewInvalidInput("odds", "must be positive")
	}
	if _, err := amount.MulRate(selection.Odds); err != nil {
		return nil, shared.NewInvalidInput("amount", "potential payout is out of range")
	}

	return &Stake{
		ID:        uuid.New(),
		AccountID: accountID,
		EventID:   ev.ID,
		Amount:    amount,
		Selection: selection,
		Status:    StatusActive,
		EventSnapshot: Snapshot{
			HomeTeam: ev.HomeTeam,
			AwayTeam: ev.AwayTeam,
			League:   ev.League,
		},
		PlacedAt: time.Now().UTC(),
	}, nil
}

// Resolve returns the terminal status and payout for this stake given the
// winning selection code
func (s *Stake) Resolve(winning event.SelectionCode) (Status, money.Money, error) {
	if s.Selection.Code != winning {
		return StatusLost, money.Zero, nil
	}
	payout, err := s.Amount.MulRate(s.Selection.Odds)
	if err != nil {
		return "", money.Zero, err
	}
	return StatusWon, payout, nil
}

// SelectionRequest is the caller's pick. QuotedOdds, when set, are the odds
// the caller saw and must still be current at placement.
type SelectionRequest struct {
	Code       string
	QuotedOdds *decimal.Decimal
}
