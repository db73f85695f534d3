package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Kind classifies a balance-affecting event
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdrawal  Kind = "withdrawal"
	KindStakePlaced Kind = "stake_placed"
	KindPayout      Kind = "payout"
)

// IsCredit reports whether entries of this kind add to the balance
func (k Kind) IsCredit() bool {
	return k == KindDeposit || k == KindPayout
}

// Status of a ledger entry. Entries are written once the balance change has
// been applied, so every stored entry is completed.
type Status string

const (
	StatusCompleted Status = "completed"
)

// DepositMethod identifies how funds enter the account
type DepositMethod string

const (
	DepositMethodCard         DepositMethod = "card"
	DepositMethodBankTransfer DepositMethod = "bank_transfer"
)

// ParseDepositMethod validates a caller supplied method
func ParseDepositMethod(raw string) (DepositMethod, error) {
	switch DepositMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case DepositMethodCard:
		return DepositMethodCard, nil
	case DepositMethodBankTransfer:
		return DepositMethodBankTransfer, nil
	default:
		return "", shared.NewInvalidInput("method", "unsupported deposit method "+raw)
	}
}

// Entry is an immutable audit record of one balance change.
// NetAmount is the absolute balance effect of the entry.
type Entry struct {
	ID           uuid.UUID   `json:"id" bson:"entry_id"`
	AccountID    string      `json:"account_id" bson:"account_id"`
	Kind         Kind        `json:"kind" bson:"kind"`
	GrossAmount  money.Money `json:"gross_amount" bson:"gross_amount"`
	Commission   money.Money `json:"commission" bson:"commission"`
	NetAmount    money.Money `json:"net_amount" bson:"net_amount"`
	BalanceAfter money.Money `json:"balance_after" bson:"balance_after"`
	Status       Status      `json:"status" bson:"status"`
	ExternalRef  string      `json:"external_ref,omitempty" bson:"external_ref,omitempty"`
	CreatedAt    time.Time   `json:"created_at" bson:"created_at"`
}

// NewEntry builds a completed entry for a balance change
func NewEntry(accountID string, kind Kind, gross, commission, net, balanceAfter money.Money, externalRef string) *Entry {
	return &Entry{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         kind,
		GrossAmount:  gross,
		Commission:   commission,
		NetAmount:    net,
		BalanceAfter: balanceAfter,
		Status:       StatusCompleted,
		ExternalRef:  externalRef,
		CreatedAt:    time.Now().UTC(),
	}
}

// Card numbers carry between 12 and 19 digits (ISO/IEC 7812)
const (
	minCardDigits = 12
	maxCardDigits = 19
)

// MaskCardNumber validates a card number and keeps only its last four digits.
// Spaces and dashes between digit groups are ignored.
func MaskCardNumber(card string) (string, error) {
	digits := make([]rune, 0, len(card))
	for _, r := range card {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, r)
		case r == ' ' || r == '-':
		default:
			return "", shared.NewInvalidInput("card_number", "must contain only digits")
		}
	}
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return "", shared.NewInvalidInput("card_number", "must be a card number of 12 to 19 digits")
	}
	return "**** " + string(digits[len(digits)-4:]), nil
}
