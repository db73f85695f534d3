package components

import (
	"github.com/shopspring/decimal"

	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/ledger_engine/service"
)

// FeeScheduleImpl applies the configured commission rates. Commissions are
// rounded half to even on minor units.
type FeeScheduleImpl struct {
	cardDepositRate decimal.Decimal
	withdrawalRate  decimal.Decimal
}

func NewFeeSchedule(cardDepositRate, withdrawalRate decimal.Decimal) service.FeeSchedule {
	return &FeeScheduleImpl{
		cardDepositRate: cardDepositRate,
		withdrawalRate:  withdrawalRate,
	}
}

// DepositCommission charges card deposits only
func (f *FeeScheduleImpl) DepositCommission(gross money.Money, method ledger.DepositMethod) (money.Money, error) {
	if method != ledger.DepositMethodCard {
		return money.Zero, nil
	}
	return gross.MulRate(f.cardDepositRate)
}

func (f *FeeScheduleImpl) WithdrawalCommission(requested money.Money) (money.Money, error) {
	return requested.MulRate(f.withdrawalRate)
}
