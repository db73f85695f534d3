package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
)

// SettlementService resolves the stakes of a finished event into payouts
type SettlementService interface {
	Settle(ctx context.Context, eventID uuid.UUID, score event.Score) (*SettlementResult, error)
	SettleOutcome(ctx context.Context, outcome event.Outcome) (*SettlementResult, error)
}

// OutcomeRecorder guards against settled events and records the final score
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome event.Outcome) error
}

// StakeSettler moves one active stake to its terminal status
type StakeSettler interface {
	SettleStake(ctx context.Context, st *stake.Stake, winning event.SelectionCode) (StakeOutcome, error)
}

// TaskRunner executes independent tasks and returns once all have finished
type TaskRunner interface {
	RunAll(ctx context.Context, tasks []func(ctx context.Context))
}

// EntryRecorder appends a ledger entry and its outbox message inside tx
type EntryRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) error
}

// StakeOutcome is what happened to a single stake during a sweep
type StakeOutcome struct {
	Status stake.Status
	Payout money.Money

	// Skipped is set when the stake was no longer active, meaning another
	// settler or an administrator resolved it first
	Skipped bool
}

// SettlementResult summarizes one settlement pass
type SettlementResult struct {
	EventID      uuid.UUID
	Winning      event.SelectionCode
	Resolved     int // Stakes this pass moved to won or lost
	Won          int
	Lost         int
	Skipped      int
	Failed       int
	StillPending int // Stakes left active, retry to finish
	PaidOut      money.Money
	Settled      bool
}
