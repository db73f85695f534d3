package stake

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent() *event.Event {
	return &event.Event{
		ID:         uuid.New(),
		HomeTeam:   "Arsenal",
		AwayTeam:   "Chelsea",
		League:     "EPL",
		Status:     event.StatusScheduled,
		Selections: event.DefaultSelections(),
	}
}

func TestNewStake(t *testing.T) {
	ev := newTestEvent()
	home, _ := ev.SelectionFor(event.SelectionHome)

	t.Run("Success", func(t *testing.T) {
		s, err := NewStake("user-1", ev, home, 300)

		require.NoError(t, err)
		assert.Equal(t, StatusActive, s.Status)
		assert.Equal(t, ev.ID, s.EventID)
		assert.Equal(t, money.Money(300), s.Amount)
		assert.Equal(t, "Arsenal", s.EventSnapshot.HomeTeam)
		assert.Nil(t, s.SettledAt)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		_, err := NewStake("user-1", ev, home, 0)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("MissingOdds", func(t *testing.T) {
		_, err := NewStake("user-1", ev, event.Selection{Code: event.SelectionHome}, 100)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
	t.Run("PayoutOutOfRange", func(t *testing.T) {
		_, err := NewStake("user-1", ev, home, money.Money(math.MaxInt64/2))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestStake_Resolve(t *testing.T) {
	s := &Stake{
		Amount:    300,
		Selection: event.Selection{Code: event.SelectionHome, Odds: decimal.RequireFromString("2.1")},
		Status:    StatusActive,
	}

	status, payout, err := s.Resolve(event.SelectionHome)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, status)
	assert.Equal(t, money.Money(630), payout)

	status, payout, err = s.Resolve(event.SelectionDraw)
	require.NoError(t, err)
	assert.Equal(t, StatusLost, status)
	assert.Equal(t, money.Zero, payout)
}

func TestStake_ResolveOverflow(t *testing.T) {
	s := &Stake{
		Amount:    money.Money(math.MaxInt64 / 2),
		Selection: event.Selection{Code: event.SelectionDraw, Odds: decimal.RequireFromString("3.4")},
		Status:    StatusActive,
	}

	_, _, err := s.Resolve(event.SelectionDraw)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusActive, StatusWon))
	assert.True(t, CanTransition(StatusActive, StatusLost))
	assert.True(t, CanTransition(StatusActive, StatusVoided))
	assert.False(t, CanTransition(StatusActive, StatusActive))
	assert.False(t, CanTransition(StatusWon, StatusLost))
	assert.False(t, CanTransition(StatusVoided, StatusWon))
}

func TestStakeErrors(t *testing.T) {
	id := uuid.New()

	assert.True(t, errors.Is(ErrStakeNotFound{StakeID: id}, shared.ErrNotFound))
	assert.True(t, errors.Is(ErrStakeNotActive{StakeID: id, Status: StatusWon}, shared.ErrConflict))
	assert.True(t, errors.Is(ErrStakeNotActive{StakeID: id}, ErrStakeNotActive{}))
	assert.True(t, errors.Is(ErrInvalidTransition{From: StatusWon, To: StatusLost}, shared.ErrInvalidInput))
}
