package trade

import (
	"context"
	"time"
)

// InventoryStore owns card ownership and balances. Atomic runs fn inside one
// transaction; returning an error from fn rolls everything back.
type InventoryStore interface {
	Snapshot(ctx context.Context, userID string) (Snapshot, error)
	Atomic(ctx context.Context, fn func(ctx context.Context, tx InventoryTx) error) error
}

// InventoryTx is only valid inside InventoryStore.Atomic. Lock* methods take
// row locks held until the transaction ends.
type InventoryTx interface {
	// LockCards returns the subset of ids the user currently owns and can trade.
	LockCards(ctx context.Context, userID string, ids []CardID) ([]CardID, error)
	LockBalance(ctx context.Context, userID string) (int64, error)
	MoveCard(ctx context.Context, from, to string, id CardID) error
	Debit(ctx context.Context, userID string, amount int64) error
	Credit(ctx context.Context, userID string, amount int64) error
}

type Messenger interface {
	Reachable(ctx context.Context, userID string) error
	// PromptOffer blocks until the party confirms an offer or ctx is done.
	PromptOffer(ctx context.Context, p OfferPrompt) (Offer, error)
	// PromptFinalConfirmation returns true only on an explicit accept.
	PromptFinalConfirmation(ctx context.Context, p FinalPrompt) (bool, error)
	NotifyOutcome(ctx context.Context, userID string, rec Record) error
}

type RecordStore interface {
	Save(ctx context.Context, rec Record) error
	LoadRecent(ctx context.Context, userID string, limit int) ([]Record, error)
	Get(ctx context.Context, sessionID string) (Record, error)
}

// SessionRegistry holds the single open-session pointer per user.
type SessionRegistry interface {
	Acquire(ctx context.Context, userID, sessionID string, ttl time.Duration) error
	Release(ctx context.Context, userID, sessionID string) error
}

type OutcomeListener interface {
	OnOutcome(ctx context.Context, rec Record) error
}
