package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

var ErrAccountNotFound = errors.New("account not found")

type cardRow struct {
	Name   string
	Level  int
	Amount int64
	Locked bool
}

type state struct {
	cards   map[trade.CardID]cardRow
	balance int64
}

func (s state) clone() state {
	return state{cards: maps.Clone(s.cards), balance: s.balance}
}

type account struct {
	mu sync.Mutex
	state
}

// Inventory is an in-process InventoryStore. Each account has its own lock.
// Atomic stages changes on copies of the locked accounts and writes them back
// only when fn succeeds.
type Inventory struct {
	mu       sync.Mutex
	accounts map[string]*account
	faults   map[string]error
}

func NewInventory() *Inventory {
	return &Inventory{
		accounts: make(map[string]*account),
		faults:   make(map[string]error),
	}
}

func (i *Inventory) account(userID string, create bool) *account {
	i.mu.Lock()
	defer i.mu.Unlock()
	a, ok := i.accounts[userID]
	if !ok && create {
		a = &account{state: state{cards: make(map[trade.CardID]cardRow)}}
		i.accounts[userID] = a
	}
	return a
}

// FailOn makes the named transaction step ("move", "debit", "credit",
// "lock_cards", "lock_balance") return err until cleared with a nil err.
func (i *Inventory) FailOn(op string, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err == nil {
		delete(i.faults, op)
		return
	}
	i.faults[op] = err
}

func (i *Inventory) fault(op string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.faults[op]
}

func (i *Inventory) SetBalance(userID string, balance int64) {
	a := i.account(userID, true)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = balance
}

func (i *Inventory) GiveCard(userID string, id trade.CardID, name string, amount int64) {
	a := i.account(userID, true)
	a.mu.Lock()
	defer a.mu.Unlock()
	row := a.cards[id]
	row.Name = name
	row.Amount += amount
	a.cards[id] = row
}

// SetLocked marks a card as locked so it cannot be traded.
func (i *Inventory) SetLocked(userID string, id trade.CardID, locked bool) {
	a := i.account(userID, true)
	a.mu.Lock()
	defer a.mu.Unlock()
	if row, ok := a.cards[id]; ok {
		row.Locked = locked
		a.cards[id] = row
	}
}

// Spend debits the balance outside any trade.
func (i *Inventory) Spend(userID string, amount int64) error {
	a := i.account(userID, false)
	if a == nil {
		return ErrAccountNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance < amount {
		return fmt.Errorf("insufficient balance (has %d, needs %d)", a.balance, amount)
	}
	a.balance -= amount
	return nil
}

// TakeCard removes one copy outside any trade.
func (i *Inventory) TakeCard(userID string, id trade.CardID) error {
	a := i.account(userID, false)
	if a == nil {
		return ErrAccountNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return removeCopy(a.cards, id)
}

func (i *Inventory) Balance(userID string) int64 {
	a := i.account(userID, false)
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (i *Inventory) Count(userID string, id trade.CardID) int64 {
	a := i.account(userID, false)
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cards[id].Amount
}

// Holdings returns a copy of the user's card counts.
func (i *Inventory) Holdings(userID string) map[trade.CardID]int64 {
	out := make(map[trade.CardID]int64)
	a := i.account(userID, false)
	if a == nil {
		return out
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, row := range a.cards {
		out[id] = row.Amount
	}
	return out
}

func (i *Inventory) Snapshot(ctx context.Context, userID string) (trade.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return trade.Snapshot{}, err
	}
	a := i.account(userID, false)
	if a == nil {
		return trade.Snapshot{}, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := trade.Snapshot{UserID: userID, Balance: a.balance, TakenAt: time.Now()}
	ids := slices.Sorted(maps.Keys(a.cards))
	for _, id := range ids {
		row := a.cards[id]
		if row.Amount <= 0 || row.Locked {
			continue
		}
		snap.Cards = append(snap.Cards, trade.OwnedCard{ID: id, Name: row.Name, Level: row.Level, Amount: row.Amount})
	}
	return snap, nil
}

func (i *Inventory) Atomic(ctx context.Context, fn func(ctx context.Context, tx trade.InventoryTx) error) error {
	tx := &memTx{inv: i, locked: make(map[string]*account), staged: make(map[string]state)}
	defer tx.unlockAll()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for userID, st := range tx.staged {
		tx.locked[userID].state = st
	}
	return nil
}

type memTx struct {
	inv    *Inventory
	locked map[string]*account
	staged map[string]state
	order  []string
}

func (t *memTx) lock(ctx context.Context, op, userID string) (state, error) {
	if err := ctx.Err(); err != nil {
		return state{}, err
	}
	if err := t.inv.fault(op); err != nil {
		return state{}, err
	}
	if st, ok := t.staged[userID]; ok {
		return st, nil
	}
	a := t.inv.account(userID, false)
	if a == nil {
		return state{}, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	a.mu.Lock()
	t.locked[userID] = a
	t.order = append(t.order, userID)
	st := a.state.clone()
	t.staged[userID] = st
	return st, nil
}

func (t *memTx) unlockAll() {
	for j := len(t.order) - 1; j >= 0; j-- {
		t.locked[t.order[j]].mu.Unlock()
	}
}

func (t *memTx) LockCards(ctx context.Context, userID string, ids []trade.CardID) ([]trade.CardID, error) {
	st, err := t.lock(ctx, "lock_cards", userID)
	if err != nil {
		return nil, err
	}
	owned := make([]trade.CardID, 0, len(ids))
	for _, id := range ids {
		if row, ok := st.cards[id]; ok && row.Amount > 0 && !row.Locked {
			owned = append(owned, id)
		}
	}
	return owned, nil
}

func (t *memTx) LockBalance(ctx context.Context, userID string) (int64, error) {
	st, err := t.lock(ctx, "lock_balance", userID)
	if err != nil {
		return 0, err
	}
	return st.balance, nil
}

func (t *memTx) MoveCard(ctx context.Context, from, to string, id trade.CardID) error {
	src, err := t.lock(ctx, "move", from)
	if err != nil {
		return err
	}
	dst, err := t.lock(ctx, "move", to)
	if err != nil {
		return err
	}
	row := src.cards[id]
	if err := removeCopy(src.cards, id); err != nil {
		return err
	}
	moved := dst.cards[id]
	moved.Name, moved.Level = row.Name, row.Level
	moved.Amount++
	dst.cards[id] = moved
	return nil
}

func (t *memTx) Debit(ctx context.Context, userID string, amount int64) error {
	st, err := t.lock(ctx, "debit", userID)
	if err != nil {
		return err
	}
	if st.balance < amount {
		return fmt.Errorf("insufficient balance (has %d, needs %d)", st.balance, amount)
	}
	st.balance -= amount
	t.staged[userID] = st
	return nil
}

func (t *memTx) Credit(ctx context.Context, userID string, amount int64) error {
	st, err := t.lock(ctx, "credit", userID)
	if err != nil {
		return err
	}
	st.balance += amount
	t.staged[userID] = st
	return nil
}

func removeCopy(cards map[trade.CardID]cardRow, id trade.CardID) error {
	row, ok := cards[id]
	if !ok || row.Amount <= 0 {
		return fmt.Errorf("card %d not found in inventory", id)
	}
	if row.Locked {
		return fmt.Errorf("card %d is locked", id)
	}
	row.Amount--
	if row.Amount == 0 {
		delete(cards, id)
		return nil
	}
	cards[id] = row
	return nil
}
