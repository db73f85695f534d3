package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
)

// Dependencies wires the ledger service
type Dependencies struct {
	Store    account.Store
	Accounts account.Repository
	Stakes   stake.Repository
	Events   event.Repository
	Catalog  event.Catalog
	Ledger   ledger.Repository
	History  ledger.HistoryRepository
	Resolver SelectionResolver
	Fees     FeeSchedule
	Recorder EntryRecorder
	Limits   Limits
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// LedgerServiceImpl implements LedgerService. Every balance change goes
// through Store.Mutate, so each success path is one storage transaction.
type LedgerServiceImpl struct {
	store    account.Store
	accounts account.Repository
	stakes   stake.Repository
	events   event.Repository
	catalog  event.Catalog
	ledger   ledger.Repository
	history  ledger.HistoryRepository
	resolver SelectionResolver
	fees     FeeSchedule
	recorder EntryRecorder
	limits   Limits
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewLedgerService(deps Dependencies) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		store:    deps.Store,
		accounts: deps.Accounts,
		stakes:   deps.Stakes,
		events:   deps.Events,
		catalog:  deps.Catalog,
		ledger:   deps.Ledger,
		history:  deps.History,
		resolver: deps.Resolver,
		fees:     deps.Fees,
		recorder: deps.Recorder,
		limits:   deps.Limits,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

var _ LedgerService = (*LedgerServiceImpl)(nil)

func (s *LedgerServiceImpl) observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = shared.Category(err)
	}
	s.metrics.IncOperation(operation, outcome)
}

// OpenAccount creates the account of an authenticated identity with the
// configured starting balance
func (s *LedgerServiceImpl) OpenAccount(ctx context.Context, accountID string) (acc *account.Account, err error) {
	defer func() { s.observe("open_account", err) }()

	acc, err = account.NewAccount(accountID, s.limits.StartingBalance)
	if err != nil {
		return nil, err
	}

	if err = s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account opened", "account_id", acc.ID, "balance", acc.Balance)
	return acc, nil
}

func (s *LedgerServiceImpl) GetAccount(ctx context.Context, accountID string) (*account.Account, error) {
	if err := account.ValidateID(accountID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, accountID)
}

// PlaceStake debits amount, creates an active stake and appends a
// stake_placed entry in one transaction
func (s *LedgerServiceImpl) PlaceStake(
	ctx context.Context,
	accountID string,
	eventID uuid.UUID,
	sel stake.SelectionRequest,
	amount money.Money,
) (result *PlaceStakeResult, err error) {
	defer func() { s.observe("place_stake", err) }()

	if err = account.ValidateID(accountID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.NewInvalidInput("amount", "must be positive")
	}
	if _, err = event.ParseSelectionCode(sel.Code); err != nil {
		return nil, err
	}

	// Reject closed events from the catalog before opening a transaction
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err = s.resolver.Resolve(ev, sel); err != nil {
		return nil, err
	}

	logger := s.logger.With("account_id", accountID, "event_id", eventID.String())

	result = &PlaceStakeResult{}
	acc, err := s.store.Mutate(ctx, accountID, func(ctx context.Context, tx pgx.Tx, acc *account.Account) error {
		// The share lock makes a concurrent result recording wait for us
		locked, err := s.events.WithTx(tx).GetForShare(ctx, eventID)
		if err != nil {
			return err
		}
		selection, err := s.resolver.Resolve(locked, sel)
		if err != nil {
			return err
		}

		if err := acc.Debit(amount); err != nil {
			return err
		}

		st, err := stake.NewStake(acc.ID, locked, selection, amount)
		if err != nil {
			return err
		}
		if err := s.stakes.WithTx(tx).Create(ctx, st); err != nil {
			return err
		}

		entry := ledger.NewEntry(acc.ID, ledger.KindStakePlaced, amount, money.Zero, amount, acc.Balance, st.ID.String())
		if err := s.recorder.Record(ctx, tx, entry); err != nil {
			return err
		}

		result.StakeID = st.ID
		result.Odds = selection.Odds
		result.EntryID = entry.ID
		return nil
	})
	if err != nil {
		logger.Warn("Stake placement rejected", "amount", amount, "selection", sel.Code, "error", err)
		return nil, err
	}

	result.NewBalance = acc.Balance
	logger.Info("Stake placed",
		"stake_id", result.StakeID.String(),
		"amount", amount,
		"odds", result.Odds.String(),
		"balance", acc.Balance,
	)
	return result, nil
}

// Deposit credits gross minus the method's commission
func (s *LedgerServiceImpl) Deposit(
	ctx context.Context,
	accountID string,
	amount money.Money,
	method ledger.DepositMethod,
	opts ...DepositOption,
) (result *MutationResult, err error) {
	defer func() { s.observe("deposit", err) }()

	var o depositOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err = account.ValidateID(accountID); err != nil {
		return nil, err
	}
	if method != ledger.DepositMethodCard && method != ledger.DepositMethodBankTransfer {
		return nil, shared.NewInvalidInput("method", "unsupported deposit method "+string(method))
	}
	if amount.LessThan(s.limits.MinDeposit) {
		return nil, shared.NewInvalidInput("amount", fmt.Sprintf("minimum deposit is %s", s.limits.MinDeposit))
	}

	commission, err := s.fees.DepositCommission(amount, method)
	if err != nil {
		return nil, err
	}
	net := amount.Sub(commission)
	if !net.IsPositive() {
		return nil, shared.NewInvalidInput("amount", "nothing left after commission")
	}

	var ref string
	if o.cardNumber != "" {
		if ref, err = ledger.MaskCardNumber(o.cardNumber); err != nil {
			return nil, err
		}
	}

	result = &MutationResult{Commission: commission}
	acc, err := s.store.Mutate(ctx, accountID, func(ctx context.Context, tx pgx.Tx, acc *account.Account) error {
		if err := acc.Credit(net); err != nil {
			return err
		}
		entry := ledger.NewEntry(acc.ID, ledger.KindDeposit, amount, commission, net, acc.Balance, ref)
		if err := s.recorder.Record(ctx, tx, entry); err != nil {
			return err
		}
		result.EntryID = entry.ID
		return nil
	})
	if err != nil {
		s.logger.Warn("Deposit failed", "account_id", accountID, "amount", amount, "error", err)
		return nil, err
	}

	result.NewBalance = acc.Balance
	s.logger.Info("Deposit completed",
		"account_id", accountID,
		"gross", amount,
		"commission", commission,
		"method", method,
		"balance", acc.Balance,
	)
	return result, nil
}

// Withdraw debits the requested amount plus commission
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, accountID string, amount money.Money, destination string) (result *MutationResult, err error) {
	defer func() { s.observe("withdraw", err) }()

	if err = account.ValidateID(accountID); err != nil {
		return nil, err
	}
	if amount.LessThan(s.limits.MinWithdrawal) {
		return nil, shared.NewInvalidInput("amount", fmt.Sprintf("minimum withdrawal is %s", s.limits.MinWithdrawal))
	}
	if strings.TrimSpace(destination) == "" {
		return nil, shared.NewInvalidInput("destination", "is required")
	}
	ref, err := ledger.MaskCardNumber(destination)
	if err != nil {
		return nil, shared.NewInvalidInput("destination", "must be a card number of 12 to 19 digits")
	}

	commission, err := s.fees.WithdrawalCommission(amount)
	if err != nil {
		return nil, err
	}
	total, err := amount.Add(commission)
	if err != nil {
		return nil, err
	}

	result = &MutationResult{Commission: commission}
	acc, err := s.store.Mutate(ctx, accountID, func(ctx context.Context, tx pgx.Tx, acc *account.Account) error {
		if err := acc.Debit(total); err != nil {
			return err
		}
		entry := ledger.NewEntry(acc.ID, ledger.KindWithdrawal, amount, commission, total, acc.Balance, ref)
		if err := s.recorder.Record(ctx, tx, entry); err != nil {
			return err
		}
		result.EntryID = entry.ID
		return nil
	})
	if err != nil {
		s.logger.Warn("Withdrawal failed", "account_id", accountID, "amount", amount, "error", err)
		return nil, err
	}

	result.NewBalance = acc.Balance
	s.logger.Info("Withdrawal completed",
		"account_id", accountID,
		"requested", amount,
		"commission", commission,
		"balance", acc.Balance,
	)
	return result, nil
}

// VoidStake cancels an active stake and refunds its amount. Stakes on an
// event whose result is already recorded cannot be voided.
func (s *LedgerServiceImpl) VoidStake(ctx context.Context, stakeID uuid.UUID, reason string) (result *MutationResult, err error) {
	defer func() { s.observe("void_stake", err) }()

	st, err := s.stakes.GetByID(ctx, stakeID)
	if err != nil {
		return nil, err
	}
	if st.Status != stake.StatusActive {
		return nil, stake.ErrStakeNotActive{StakeID: st.ID, Status: st.Status}
	}

	result = &MutationResult{}
	acc, err := s.store.Mutate(ctx, st.AccountID, func(ctx context.Context, tx pgx.Tx, acc *account.Account) error {
		// Holding the share lock keeps a result from being recorded under us
		ev, err := s.events.WithTx(tx).GetForShare(ctx, st.EventID)
		if err != nil {
			return err
		}
		if ev.Settled || ev.Status == event.StatusFinished {
			return event.ErrEventClosed{EventID: ev.ID, Status: ev.Status}
		}

		if _, err := s.stakes.WithTx(tx).Transition(ctx, st.ID, stake.StatusActive, stake.StatusVoided, st.Amount, time.Now().UTC()); err != nil {
			return err
		}
		if err := acc.Credit(st.Amount); err != nil {
			return err
		}
		entry := ledger.NewEntry(acc.ID, ledger.KindPayout, st.Amount, money.Zero, st.Amount, acc.Balance, "void:"+st.ID.String())
		if err := s.recorder.Record(ctx, tx, entry); err != nil {
			return err
		}
		result.EntryID = entry.ID
		return nil
	})
	if err != nil {
		s.logger.Warn("Stake void failed", "stake_id", stakeID.String(), "error", err)
		return nil, err
	}

	result.NewBalance = acc.Balance
	s.logger.Info("Stake voided",
		"stake_id", stakeID.String(),
		"account_id", st.AccountID,
		"refund", st.Amount,
		"reason", reason,
	)
	return result, nil
}

// ListStakesByAccount returns the latest stakes, newest first
func (s *LedgerServiceImpl) ListStakesByAccount(ctx context.Context, accountID string) ([]*stake.Stake, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.stakes.ListByAccount(ctx, accountID, s.limits.HistoryLimit)
}

// ListLedgerEntries returns the latest ledger entries, newest first
func (s *LedgerServiceImpl) ListLedgerEntries(ctx context.Context, accountID string) ([]*ledger.Entry, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.ledger.ListByAccount(ctx, accountID, s.limits.HistoryLimit)
}

// ListHistory pages through the projected ledger history. Page is 1-based.
func (s *LedgerServiceImpl) ListHistory(ctx context.Context, accountID string, page, pageSize int) (*HistoryPage, error) {
	if err := account.ValidateID(accountID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > s.limits.HistoryLimit {
		pageSize = s.limits.HistoryLimit
	}

	offset := (page - 1) * pageSize
	entries, err := s.history.GetByAccountID(ctx, accountID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger history: %w", shared.ErrUnavailable, err)
	}
	total, err := s.history.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger history: %w", shared.ErrUnavailable, err)
	}

	return &HistoryPage{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
