package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the event lifecycle state
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
)

// SelectionCode names the outcome a stake backs
type SelectionCode string

const (
	SelectionHome SelectionCode = "HOME"
	SelectionDraw SelectionCode = "DRAW"
	SelectionAway SelectionCode = "AWAY"
)

// ParseSelectionCode accepts the canonical codes and the legacy 1X2 labels
func ParseSelectionCode(raw string) (SelectionCode, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HOME", "П1", "1":
		return SelectionHome, nil
	case "DRAW", "X":
		return SelectionDraw, nil
	case "AWAY", "П2", "2":
		return SelectionAway, nil
	default:
		return "", shared.NewInvalidInput("selection", "unknown selection "+raw)
	}
}

// Selection is a selection code paired with its odds
type Selection struct {
	Code SelectionCode   `json:"code"`
	Odds decimal.Decimal `json:"odds"`
}

var minOdds = decimal.NewFromInt(1)

// DefaultSelections are the odds a new event is published with unless the
// caller overrides them
func DefaultSelections() []Selection {
	return []Selection{
		{Code: SelectionHome, Odds: decimal.RequireFromString("2.1")},
		{Code: SelectionDraw, Odds: decimal.RequireFromString("3.4")},
		{Code: SelectionAway, Odds: decimal.RequireFromString("2.95")},
	}
}

// NormalizeSelections maps legacy labels to canonical codes and requires
// each code at most once with odds above 1. The input is left untouched.
func NormalizeSelections(selections []Selection) ([]Selection, error) {
	if len(selections) == 0 {
		return nil, shared.NewInvalidInput("selections", "at least one selection is required")
	}
	out := make([]Selection, 0, len(selections))
	seen := make(map[SelectionCode]bool, len(selections))
	for _, sel := range selections {
		code, err := ParseSelectionCode(string(sel.Code))
		if err != nil {
			return nil, err
		}
		if seen[code] {
			return nil, shared.NewInvalidInput("selections", "duplicate selection "+string(code))
		}
		seen[code] = true
		if !sel.Odds.GreaterThan(minOdds) {
			return nil, shared.NewInvalidInput("odds", "must be greater than 1 for "+string(code))
		}
		out = append(out, Selection{Code: code, Odds: sel.Odds})
	}
	return out, nil
}

// Score is the final score reported for an event
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Validate rejects negative scores
func (s Score) Validate() error {
	if s.Home < 0 || s.Away < 0 {
		return shared.NewInvalidInput("score", "must not be negative")
	}
	return nil
}

// WinningSelection maps a final score to the winning selection code.
// home > away is HOME, away > home is AWAY, a tie is DRAW.
func WinningSelection(score Score) SelectionCode {
	switch {
	case score.Home > score.Away:
		return SelectionHome
	case score.Away > score.Home:
		return SelectionAway
	default:
		return SelectionDraw
	}
}

// Outcome is the settlement input supplied by the match catalog
type Outcome struct {
	EventID    uuid.UUID `json:"event_id"`
	Score      Score     `json:"score"`
	FinishedAt time.Time `json:"finished_at"`
}

// Event is a match stakes are placed against
type Event struct {
	ID         uuid.UUID   `json:"id"`
	HomeTeam   string      `json:"home_team"`
	AwayTeam   string      `json:"away_team"`
	League     string      `json:"league"`
	StartsAt   time.Time   `json:"starts_at"`
	Status     Status      `json:"status"`
	Settled    bool        `json:"settled"`
	Score      *Score      `json:"score,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	SettledAt  *time.Time  `json:"settled_at,omitempty"`
	Selections []Selection `json:"selections"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewEvent creates a scheduled event. Nil selections fall back to DefaultSelections.
func NewEvent(homeTeam, awayTeam, league string, startsAt time.Time, selections []Selection) (*Event, error) {
	homeTeam = strings.TrimSpace(homeTeam)
	awayTeam = strings.TrimSpace(awayTeam)
	if homeTeam == "" || awayTeam == "" {
		return nil, shared.NewInvalidInput("teams", "home and away teams are required")
	}
	if len(selections) == 0 {
		selections = DefaultSelections()
	}
	selections, err := NormalizeSelections(selections)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Event{
		ID:         uuid.New(),
		HomeTeam:   homeTeam,
		AwayTeam:   awayTeam,
		League:     strings.TrimSpace(league),
		StartsAt:   startsAt.UTC(),
		Status:     StatusScheduled,
		Selections: selections,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsOpen reports whether stakes may still be placed
func (e *Event) IsOpen() bool {
	return !e.Settled && (e.Status == StatusScheduled || e.Status == StatusLive)
}

// SelectionFor returns the current odds for code
func (e *Event) SelectionFor(code SelectionCode) (Selection, bool) {
	for _, sel := range e.Selections {
		if sel.Code == code {
			return sel, true
		}
	}
	return Selection{}, false
}
