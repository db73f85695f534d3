package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts are integers in minor units (cents), at most 10^11 per request.
// Odds travel as decimal strings.

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Balance   int64  `json:"balance"`
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PlaceStakeRequest represents a request to place a stake for the caller
type PlaceStakeRequest struct {
	EventID    string           `json:"event_id" binding:"required,uuid"`
	Selection  string           `json:"selection" binding:"required"`
	Amount     int64            `json:"amount" binding:"required,max=100000000000"`
	QuotedOdds *decimal.Decimal `json:"quoted_odds,omitempty"`
}

// PlaceStakeResponse is returned for an accepted stake
type PlaceStakeResponse struct {
	StakeID    string          `json:"stake_id"`
	Odds       decimal.Decimal `json:"odds"`
	NewBalance int64           `json:"new_balance"`
	EntryID    string          `json:"entry_id"`
}

// VoidStakeRequest carries the reason a stake is cancelled
type VoidStakeRequest struct {
	Reason string `json:"reason" binding:"max=256"`
}

// DepositRequest represents a top-up of the caller's balance
type DepositRequest struct {
	Amount     int64  `json:"amount" binding:"required,max=100000000000"`
	Method     string `json:"method" binding:"required"`
	CardNumber string `json:"card_number,omitempty"`
}

// WithdrawRequest represents a payout to the caller's card
type WithdrawRequest struct {
	Amount      int64  `json:"amount" binding:"required,max=100000000000"`
	Destination string `json:"destination" binding:"required"`
}

// MutationResponse is returned by deposits, withdrawals and voids
type MutationResponse struct {
	NewBalance int64  `json:"new_balance"`
	EntryID    string `json:"entry_id"`
	Commission int64  `json:"commission"`
}

// SelectionDTO is one selection with its odds
type SelectionDTO struct {
	Code string          `json:"code" binding:"required"`
	Odds decimal.Decimal `json:"odds"`
}

// SnapshotResponse is the event metadata captured at placement
type SnapshotResponse struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	League   string `json:"league"`
}

// StakeResponse represents a stake in API responses
type StakeResponse struct {
	ID        string           `json:"id"`
	EventID   string           `json:"event_id"`
	Amount    int64            `json:"amount"`
	Selection SelectionDTO     `json:"selection"`
	Status    string           `json:"status"`
	Payout    int64            `json:"payout"`
	Event     SnapshotResponse `json:"event"`
	PlacedAt  string           `json:"placed_at"`
	SettledAt string           `json:"settled_at,omitempty"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	GrossAmount  int64  `json:"gross_amount"`
	Commission   int64  `json:"commission"`
	NetAmount    int64  `json:"net_amount"`
	BalanceAfter int64  `json:"balance_after"`
	Status       string `json:"status"`
	ExternalRef  string `json:"external_ref,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// CreateEventRequest represents a new event for the catalog
type CreateEventRequest struct {
	HomeTeam   string         `json:"home_team" binding:"required"`
	AwayTeam   string         `json:"away_team" binding:"required"`
	League     string         `json:"league"`
	StartsAt   time.Time      `json:"starts_at" binding:"required"`
	Selections []SelectionDTO `json:"selections" binding:"omitempty,dive"`
}

// UpdateOddsRequest replaces the odds of an open event
type UpdateOddsRequest struct {
	Selections []SelectionDTO `json:"selections" binding:"required,min=1,dive"`
}

// ScoreDTO is a final score. Pointers tell a missing side from a zero.
type ScoreDTO struct {
	Home *int `json:"home" binding:"required"`
	Away *int `json:"away" binding:"required"`
}

// EventResponse represents an event in API responses
type EventResponse struct {
	ID         string         `json:"id"`
	HomeTeam   string         `json:"home_team"`
	AwayTeam   string         `json:"away_team"`
	League     string         `json:"league"`
	StartsAt   string         `json:"starts_at"`
	Status     string         `json:"status"`
	Settled    bool           `json:"settled"`
	Score      *ScoreResponse `json:"score,omitempty"`
	Selections []SelectionDTO `json:"selections"`
}

// ScoreResponse is a recorded final score
type ScoreResponse struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// SettlementResponse summarizes one settlement pass
type SettlementResponse struct {
	EventID      string `json:"event_id"`
	Winning      string `json:"winning"`
	Resolved     int    `json:"resolved"`
	Won          int    `json:"won"`
	Lost         int    `json:"lost"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	StillPending int    `json:"still_pending"`
	PaidOut      int64  `json:"paid_out"`
	Settled      bool   `json:"settled"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}
