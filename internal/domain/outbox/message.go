package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
)

// Message carries a committed ledger entry to the history projection and the
// ledger event stream. It is written in the same transaction as the entry, so
// an entry exists if and only if its message does.
type Message struct {
	ID            int64           `json:"id"`
	EntryID       uuid.UUID       `json:"entry_id"`
	AccountID     string          `json:"account_id"`
	Kind          ledger.Kind     `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage snapshots entry as a pending message
func NewMessage(entry *ledger.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Kind:      entry.Kind,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// RecordAttempt counts a failed delivery. The message stays pending.
func (m *Message) RecordAttempt() {
	m.Attempts++
	m.touch()
}

func (m *Message) MarkPublished() {
	m.Status = StatusPublished
	m.touch()
}

func (m *Message) MarkFailed() {
	m.Status = StatusFailed
	m.touch()
}

// Exhausted reports whether the message has used up maxAttempts deliveries
func (m *Message) Exhausted(maxAttempts int) bool {
	return m.Attempts >= maxAttempts
}

func (m *Message) touch() {
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// LedgerEntry decodes the entry carried in the payload
func (m *Message) LedgerEntry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
