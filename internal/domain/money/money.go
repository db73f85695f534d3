// Package money implements fixed-point monetary amounts stored as an integer
// count of minor units.
package money

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Money is an amount in minor units. It never holds fractions of a minor unit.
type Money int64

// Zero is the zero amount
const Zero Money = 0

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// ErrOverflow is returned when a result does not fit in int64 minor units
type ErrOverflow struct {
	Op string
}

func (e ErrOverflow) Error() string {
	return "amount out of range in " + e.Op
}

// Is implements the errors.Is interface for ErrOverflow
func (e ErrOverflow) Is(target error) bool {
	if target == shared.ErrInvalidInput {
		return true
	}
	_, ok := target.(ErrOverflow)
	return ok
}

// Add returns m + other, or ErrOverflow when the sum leaves the int64 range
func (m Money) Add(other Money) (Money, error) {
	if (other > 0 && m > math.MaxInt64-other) || (other < 0 && m < math.MinInt64-other) {
		return 0, ErrOverflow{Op: "add"}
	}
	return m + other, nil
}

// Sub returns m - other. The result may be negative; callers that need a
// non-negative balance must check before committing it.
func (m Money) Sub(other Money) Money {
	return m - other
}

// MulRate multiplies m by a rational rate (odds, commission) and rounds the
// result to whole minor units, half to even.
func (m Money) MulRate(rate decimal.Decimal) (Money, error) {
	product := decimal.NewFromInt(int64(m)).Mul(rate).RoundBank(0)
	if product.GreaterThan(maxMinorUnits) || product.LessThan(minMinorUnits) {
		return 0, ErrOverflow{Op: "multiply"}
	}
	return Money(product.IntPart()), nil
}

// Cmp compares m and other and returns -1, 0 or +1
func (m Money) Cmp(other Money) int {
	switch {
	case m < other:
		return -1
	case m > other:
		return 1
	default:
		return 0
	}
}

// LessThan reports whether m < other
func (m Money) LessThan(other Money) bool {
	return m < other
}

// IsPositive reports whether m > 0
func (m Money) IsPositive() bool {
	return m > 0
}

// IsNegative reports whether m < 0
func (m Money) IsNegative() bool {
	return m < 0
}

// Int64 returns the raw minor-unit count
func (m Money) Int64() int64 {
	return int64(m)
}

func (m Money) String() string {
	return strconv.FormatInt(int64(m), 10)
}
