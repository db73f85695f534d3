package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
)

// LedgerService is the balance-affecting surface of the engine
type LedgerService interface {
	OpenAccount(ctx context.Context, accountID string) (*account.Account, error)
	GetAccount(ctx context.Context, accountID string) (*account.Account, error)
	PlaceStake(ctx context.Context, accountID string, eventID uuid.UUID, sel stake.SelectionRequest, amount money.Money) (*PlaceStakeResult, error)
	Deposit(ctx context.Context, accountID string, amount money.Money, method ledger.DepositMethod, opts ...DepositOption) (*MutationResult, error)
	Withdraw(ctx context.Context, accountID string, amount money.Money, destination string) (*MutationResult, error)
	VoidStake(ctx context.Context, stakeID uuid.UUID, reason string) (*MutationResult, error)
	ListStakesByAccount(ctx context.Context, accountID string) ([]*stake.Stake, error)
	ListLedgerEntries(ctx context.Context, accountID string) ([]*ledger.Entry, error)
	ListHistory(ctx context.Context, accountID string, page, pageSize int) (*HistoryPage, error)
}

// CatalogService administers the events stakes are placed against
type CatalogService interface {
	CreateEvent(ctx context.Context, req CreateEventRequest) (*event.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error)
	ListOpenEvents(ctx context.Context) ([]*event.Event, error)
	UpdateOdds(ctx context.Context, id uuid.UUID, selections []event.Selection) (*event.Event, error)
	MarkLive(ctx context.Context, id uuid.UUID) (*event.Event, error)
}

// FeeSchedule computes commissions on money movements
type FeeSchedule interface {
	DepositCommission(gross money.Money, method ledger.DepositMethod) (money.Money, error)
	WithdrawalCommission(requested money.Money) (money.Money, error)
}

// SelectionResolver turns a caller's pick into the selection stored on the
// stake, checking that the event is still open and the quote still current
type SelectionResolver interface {
	Resolve(ev *event.Event, req stake.SelectionRequest) (event.Selection, error)
}

// EntryRecorder appends a ledger entry and its outbox message inside tx
type EntryRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) error
}

// Limits are the configured business thresholds
type Limits struct {
	StartingBalance money.Money
	MinDeposit      money.Money
	MinWithdrawal   money.Money
	HistoryLimit    int
}

// PlaceStakeResult is returned by a successful placement
type PlaceStakeResult struct {
	StakeID    uuid.UUID
	Odds       decimal.Decimal
	NewBalance money.Money
	EntryID    uuid.UUID
}

// MutationResult is returned by deposits, withdrawals and refunds
type MutationResult struct {
	NewBalance money.Money
	EntryID    uuid.UUID
	Commission money.Money
}

// HistoryPage is one page of the ledger history read model
type HistoryPage struct {
	Entries  []*ledger.Entry
	Total    int64
	Page     int
	PageSize int
}

// CreateEventRequest describes a new event. Empty selections get the default odds.
type CreateEventRequest struct {
	HomeTeam   string
	AwayTeam   string
	League     string
	StartsAt   time.Time
	Selections []event.Selection
}

type depositOptions struct {
	cardNumber string
}

// DepositOption adjusts a deposit
type DepositOption func(*depositOptions)

// WithCardNumber records the masked card number as the entry reference
func WithCardNumber(card string) DepositOption {
	return func(o *depositOptions) {
		o.cardNumber = card
	}
}
