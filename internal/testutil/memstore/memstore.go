// Package memstore is an in-memory stand-in for the PostgreSQL repositories
// and the account store, used by engine and settlement tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oddsly-wagering-ledger/internal/domain/account"
	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/domain/ledger"
	"github.com/oddsly-wagering-ledger/internal/domain/money"
	"github.com/oddsly-wagering-ledger/internal/domain/stake"
)

// World holds all state. Store.Mutate runs one cycle at a time. TxRunner
// lets cycles overlap so callers race on the account version instead. Both
// roll back stakes and entries written on a failed transaction.
type World struct {
	mutateMu sync.Mutex

	mu            sync.Mutex
	accounts      map[string]*account.Account
	stakes        map[uuid.UUID]*stake.Stake
	events        map[uuid.UUID]*event.Event
	entries       []*ledger.Entry
	catalogHits   int
	invalidated   []uuid.UUID
	swapConflicts int

	// FailTransition, when set, can veto a stake transition before it
	// applies. It runs with the world locked.
	FailTransition func(id uuid.UUID, to stake.Status) error

	// AfterAccountRead, when set, runs after every account read with the
	// world unlocked.
	AfterAccountRead func(id string)
}

func NewWorld() *World {
	return &World{
		accounts: make(map[string]*account.Account),
		stakes:   make(map[uuid.UUID]*stake.Stake),
		events:   make(map[uuid.UUID]*event.Event),
	}
}

var (
	_ account.Store            = Store{}
	_ account.Repository       = Accounts{}
	_ stake.Repository         = Stakes{}
	_ event.Repository         = Events{}
	_ event.Catalog            = Catalog{}
	_ ledger.Repository        = Ledger{}
	_ ledger.HistoryRepository = History{}
)

func (w *World) Store() Store       { return Store{w} }
func (w *World) Accounts() Accounts { return Accounts{w} }
func (w *World) Stakes() Stakes     { return Stakes{w: w} }
func (w *World) Events() Events     { return Events{w} }
func (w *World) Catalog() Catalog   { return Catalog{w} }
func (w *World) Ledger() Ledger     { return Ledger{w} }
func (w *World) Recorder() Recorder { return Recorder{w} }
func (w *World) History() History   { return History{w} }
func (w *World) TxRunner() TxRunner { return TxRunner{w} }

// CatalogHits counts catalog reads
func (w *World) CatalogHits() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.catalogHits
}

// Invalidated lists the events dropped from the catalog
func (w *World) Invalidated() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uuid.UUID(nil), w.invalidated...)
}

// SwapConflicts counts CompareAndSwap calls that lost on the version
func (w *World) SwapConflicts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.swapConflicts
}

func (w *World) SeedAccount(id string, balance money.Money) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now().UTC()
	w.accounts[id] = &account.Account{ID: id, Balance: balance, Version: 1, CreatedAt: now, UpdatedAt: now}
}

func (w *World) SeedEvent(ev *event.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := *ev
	w.events[ev.ID] = &cp
}

func (w *World) Balance(id string) money.Money {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accounts[id].Balance
}

func (w *World) Entries(id string) []*ledger.Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range w.entries {
		if e.AccountID == id {
			out = append(out, e)
		}
	}
	return out
}

func (w *World) StakeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stakes)
}

type Store struct{ w *World }

func (s Store) Get(_ context.Context, id string) (*account.Account, error) {
	s.w.mu.Lock()
	acc, ok := s.w.accounts[id]
	if !ok {
		s.w.mu.Unlock()
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	cp := *acc
	s.w.mu.Unlock()

	if s.w.AfterAccountRead != nil {
		s.w.AfterAccountRead(id)
	}
	return &cp, nil
}

func (s Store) Mutate(ctx context.Context, id string, fn account.MutateFunc) (*account.Account, error) {
	s.w.mutateMu.Lock()
	defer s.w.mutateMu.Unlock()

	s.w.mu.Lock()
	stored, ok := s.w.accounts[id]
	if !ok {
		s.w.mu.Unlock()
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	working := *stored
	s.w.mu.Unlock()

	tx := newTx()
	if err := fn(ctx, tx, &working); err != nil {
		s.w.rollback(tx)
		return nil, err
	}

	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	working.Version = stored.Version + 1
	s.w.accounts[id] = &working
	cp := working
	return &cp, nil
}

// Tx is the handle passed to transactional callbacks. It remembers what was
// written through it so a failed transaction can be undone. Any pgx.Tx method
// beyond that panics.
type Tx struct {
	pgx.Tx

	mu      sync.Mutex
	stakes  map[uuid.UUID]*stake.Stake
	entries map[uuid.UUID]struct{}
}

func newTx() *Tx {
	return &Tx{
		stakes:  make(map[uuid.UUID]*stake.Stake),
		entries: make(map[uuid.UUID]struct{}),
	}
}

// asTx recovers the memstore handle, nil for foreign or absent transactions
func asTx(tx pgx.Tx) *Tx {
	t, _ := tx.(*Tx)
	return t
}

// rollback restores stake pre-images and drops entries recorded on tx
func (w *World) rollback(tx *Tx) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, prev := range tx.stakes {
		if prev == nil {
			delete(w.stakes, id)
		} else {
			w.stakes[id] = prev
		}
	}
	if len(tx.entries) == 0 {
		return
	}
	kept := w.entries[:0]
	for _, e := range w.entries {
		if _, undo := tx.entries[e.ID]; !undo {
			kept = append(kept, e)
		}
	}
	w.entries = kept
}

// TxRunner runs each callback on its own Tx without any world-wide lock, so
// account.Store implementations built on CompareAndSwap see real contention.
type TxRunner struct{ w *World }

func (r TxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	tx := newTx()
	if err := fn(tx); err != nil {
		r.w.rollback(tx)
		return err
	}
	return nil
}

type Accounts struct{ w *World }

func (r Accounts) Create(_ context.Context, acc *account.Account) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.accounts[acc.ID]; ok {
		return account.ErrAccountExists{AccountID: acc.ID}
	}
	cp := *acc
	r.w.accounts[acc.ID] = &cp
	return nil
}

func (r Accounts) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return Store(r).Get(ctx, id)
}

func (r Accounts) CompareAndSwap(_ context.Context, acc *account.Account, expectedVersion int) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	stored, ok := r.w.accounts[acc.ID]
	if !ok || stored.Version != expectedVersion {
		r.w.swapConflicts++
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}
	cp := *acc
	r.w.accounts[acc.ID] = &cp
	return nil
}

func (r Accounts) WithTx(pgx.Tx) account.Repository { return r }

type Stakes struct {
	w  *World
	tx *Tx
}

// remember keeps the pre-image of a stake written on a transaction; a nil
// pre-image marks a created stake. Must be called with the world locked.
func (r Stakes) remember(id uuid.UUID) {
	if r.tx == nil {
		return
	}
	r.tx.mu.Lock()
	defer r.tx.mu.Unlock()
	if _, seen := r.tx.stakes[id]; seen {
		return
	}
	if st, ok := r.w.stakes[id]; ok {
		cp := *st
		r.tx.stakes[id] = &cp
		return
	}
	r.tx.stakes[id] = nil
}

func (r Stakes) Create(_ context.Context, st *stake.Stake) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.stakes[st.ID]; ok {
		return stake.ErrDuplicateStake{StakeID: st.ID}
	}
	r.remember(st.ID)
	cp := *st
	r.w.stakes[st.ID] = &cp
	return nil
}

func (r Stakes) GetByID(_ context.Context, id uuid.UUID) (*stake.Stake, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	st, ok := r.w.stakes[id]
	if !ok {
		return nil, stake.ErrStakeNotFound{StakeID: id}
	}
	cp := *st
	return &cp, nil
}

func (r Stakes) Transition(_ context.Context, id uuid.UUID, from, to stake.Status, payout money.Money, settledAt time.Time) (*stake.Stake, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	st, ok := r.w.stakes[id]
	if !ok {
		return nil, stake.ErrStakeNotFound{StakeID: id}
	}
	if r.w.FailTransition != nil {
		if err := r.w.FailTransition(id, to); err != nil {
			return nil, err
		}
	}
	if st.Status != from {
		return nil, stake.ErrStakeNotActive{StakeID: id, Status: st.Status}
	}
	r.remember(id)
	st.Status = to
	st.Payout = payout
	st.SettledAt = &settledAt
	cp := *st
	return &cp, nil
}

func (r Stakes) ListActiveByEvent(_ context.Context, eventID uuid.UUID) ([]*stake.Stake, error) {
	return r.filter(func(st *stake.Stake) bool { return st.EventID == eventID && st.Status == stake.StatusActive }, 0), nil
}

func (r Stakes) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	active, _ := r.ListActiveByEvent(ctx, eventID)
	return len(active), nil
}

func (r Stakes) ListByAccount(_ context.Context, accountID string, limit int) ([]*stake.Stake, error) {
	return r.filter(func(st *stake.Stake) bool { return st.AccountID == accountID }, limit), nil
}

func (r Stakes) filter(keep func(*stake.Stake) bool, limit int) []*stake.Stake {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	out := make([]*stake.Stake, 0)
	for _, st := range r.w.stakes {
		if keep(st) {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r Stakes) WithTx(tx pgx.Tx) stake.Repository { return Stakes{w: r.w, tx: asTx(tx)} }

type Events struct{ w *World }

func (r Events) Create(_ context.Context, ev *event.Event) error {
	r.w.SeedEvent(ev)
	return nil
}

func (r Events) GetByID(_ context.Context, id uuid.UUID) (*event.Event, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	ev, ok := r.w.events[id]
	if !ok {
		return nil, event.ErrEventNotFound{EventID: id}
	}
	cp := *ev
	return &cp, nil
}

func (r Events) GetForShare(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return r.GetByID(ctx, id)
}

func (r Events) ListOpen(_ context.Context, limit int) ([]*event.Event, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	out := make([]*event.Event, 0)
	for _, ev := range r.w.events {
		if ev.IsOpen() {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r Events) UpdateSelections(_ context.Context, id uuid.UUID, selections []event.Selection) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	ev, ok := r.w.events[id]
	if !ok {
		return event.ErrEventNotFound{EventID: id}
	}
	if !ev.IsOpen() {
		return event.ErrEventClosed{EventID: id, Status: ev.Status}
	}
	ev.Selections = selections
	return nil
}

func (r Events) MarkLive(_ context.Context, id uuid.UUID) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	ev, ok := r.w.events[id]
	if !ok {
		return event.ErrEventNotFound{EventID: id}
	}
	ev.Status = event.StatusLive
	return nil
}

func (r Events) RecordResult(_ context.Context, id uuid.UUID, score event.Score, finishedAt time.Time) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	ev, ok := r.w.events[id]
	if !ok {
		return event.ErrEventNotFound{EventID: id}
	}
	if ev.Settled {
		return event.ErrEventAlreadySettled{EventID: id}
	}
	if ev.Score != nil {
		if *ev.Score != score {
			return event.ErrResultMismatch{EventID: id, Recorded: *ev.Score, Reported: score}
		}
		return nil
	}
	ev.Status = event.StatusFinished
	ev.Score = &score
	ev.FinishedAt = &finishedAt
	return nil
}

func (r Events) MarkSettled(_ context.Context, id uuid.UUID, settledAt time.Time) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	ev, ok := r.w.events[id]
	if !ok || ev.Settled {
		return false, nil
	}
	for _, st := range r.w.stakes {
		if st.EventID == id && st.Status == stake.StatusActive {
			return false, nil
		}
	}
	ev.Settled = true
	ev.SettledAt = &settledAt
	return true, nil
}

func (r Events) WithTx(pgx.Tx) event.Repository { return r }

type Catalog struct{ w *World }

func (c Catalog) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	c.w.mu.Lock()
	c.w.catalogHits++
	c.w.mu.Unlock()
	return Events(c).GetByID(ctx, id)
}

func (c Catalog) Invalidate(_ context.Context, id uuid.UUID) error {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	c.w.invalidated = append(c.w.invalidated, id)
	return nil
}

type Ledger struct{ w *World }

func (r Ledger) Record(_ context.Context, entry *ledger.Entry) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.entries = append(r.w.entries, entry)
	return nil
}

func (r Ledger) ListByAccount(_ context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	entries := r.w.Entries(accountID)
	out := make([]*ledger.Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (r Ledger) WithTx(pgx.Tx) ledger.Repository { return r }

// Recorder writes only to the transaction log
type Recorder struct{ w *World }

func (r Recorder) Record(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) error {
	if t := asTx(tx); t != nil {
		t.mu.Lock()
		t.entries[entry.ID] = struct{}{}
		t.mu.Unlock()
	}
	return Ledger(r).Record(ctx, entry)
}

// History serves the projection straight from the transaction log
type History struct{ w *World }

func (h History) Upsert(context.Context, *ledger.Entry) error { return nil }

func (h History) GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*ledger.Entry, error) {
	all, _ := Ledger(h).ListByAccount(ctx, accountID, 0)
	if offset >= len(all) {
		return []*ledger.Entry{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (h History) CountByAccountID(_ context.Context, accountID string) (int64, error) {
	return int64(len(h.w.Entries(accountID))), nil
}
