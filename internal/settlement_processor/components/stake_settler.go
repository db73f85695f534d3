package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
	"github.com/oddsly-wagering-ledger/internal/settlement_processor/service"
)

// StakeSettlerImpl resolves a stake with a status compare-and-swap, so a
// stake is paid at most once however many settlers race on it
type StakeSettlerImpl struct {
	store    account.Store
	stakes   stake.Repository
	recorder service.EntryRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewStakeSettler(
	store account.Store,
	stakes stake.Repository,
	recorder service.EntryRecorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) service.StakeSettler {
	return &StakeSettlerImpl{
		store:    store,
		stakes:   stakes,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
	}
}

func (s *StakeSettlerImpl) SettleStake(ctx context.Context, st *stake.Stake, winning event.SelectionCode) (service.StakeOutcome, error) {
	status, payout, err := st.Resolve(winning)
	if err != nil {
		return service.StakeOutcome{}, fmt.Errorf("settle stake %s: %w", st.ID, err)
	}
	settledAt := time.Now().UTC()

	if status == stake.StatusWon {
		err = s.payWinner(ctx, st, payout, settledAt)
	} else {
		_, err = s.stakes.Transition(ctx, st.ID, stake.StatusActive, stake.StatusLost, money.Zero, settledAt)
	}

	if errors.Is(err, stake.ErrStakeNotActive{}) {
		s.logger.Info("Stake already resolved, skipping", "stake_id", st.ID.String(), "error", err)
		s.metrics.IncStakeSettled("skipped", 0)
		return service.StakeOutcome{Skipped: true}, nil
	}
	if err != nil {
		return service.StakeOutcome{}, fmt.Errorf("settle stake %s: %w", st.ID, err)
	}

	s.metrics.IncStakeSettled(string(status), payout.Int64())
	s.logger.Debug("Stake settled",
		"stake_id", st.ID.String(),
		"account_id", st.AccountID,
		"status", status,
		"payout", payout,
	)
	return service.StakeOutcome{Status: status, Payout: payout}, nil
}

// payWinner flips the stake and credits the payout in the same transaction
func (s *StakeSettlerImpl) payWinner(ctx context.Context, st *stake.Stake, payout money.Money, settledAt time.Time) error {
	_, err := s.store.Mutate(ctx, st.AccountID, func(ctx context.Context, tx pgx.Tx, acc *account.Account) error {
		if _, err := s.stakes.WithTx(tx).Transition(ctx, st.ID, stake.StatusActive, stake.StatusWon, payout, settledAt); err != nil {
			return err
		}
		if err := acc.Credit(payout); err != nil {
			return err
		}
		entry := ledger.NewEntry(acc.ID, ledger.KindPayout, payout, money.Zero, payout, acc.Balance, "stake:"+st.ID.String())
		return s.recorder.Record(ctx, tx, entry)
	})
	return err
}
