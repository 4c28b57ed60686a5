package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Executor performs the two-leg swap as one transaction.
type Executor struct {
	store  InventoryStore
	logger *slog.Logger
}

func NewExecutor(store InventoryStore, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, logger: logger}
}

// Execute re-validates both offers and applies both legs. It returns
// *StaleOfferError or *ExecutionError; in both cases nothing was changed.
func (e *Executor) Execute(ctx context.Context, sessionID string, a, b Offer) error {
	err := e.store.Atomic(ctx, func(ctx context.Context, tx InventoryTx) error {
		if err := Revalidate(ctx, tx, a, b); err != nil {
			return err
		}
		if err := applyLeg(ctx, tx, a, b.Owner.UserID); err != nil {
			return err
		}
		return applyLeg(ctx, tx, b, a.Owner.UserID)
	})
	if err == nil {
		e.logger.Info("Trade executed successfully",
			slog.String("type", "trade"),
			slog.String("session_id", sessionID),
			slog.String(string(a.Owner.Role), a.Owner.UserID),
			slog.String(string(b.Owner.Role), b.Owner.UserID),
			slog.Int("cards_moved", len(a.Cards)+len(b.Cards)),
			slog.Int64("currency_moved", a.Currency+b.Currency))
		return nil
	}

	var stale *StaleOfferError
	if errors.As(err, &stale) {
		e.logger.Warn("Trade offers went stale before execution",
			slog.String("type", "trade"),
			slog.String("session_id", sessionID),
			slog.Any("stale_sides", stale.Roles()))
		return stale
	}

	e.logger.Error("Trade execution rolled back",
		slog.String("type", "trade"),
		slog.String("session_id", sessionID),
		slog.String("status", "needs_review"),
		slog.Any("error", err))
	return &ExecutionError{SessionID: sessionID, Err: err}
}

func applyLeg(ctx context.Context, tx InventoryTx, o Offer, to string) error {
	from := o.Owner.UserID
	for _, id := range o.Cards {
		if err := tx.MoveCard(ctx, from, to, id); err != nil {
			return fmt.Errorf("failed to move card %d from %s to %s: %w", id, from, to, err)
		}
	}
	if o.Currency == 0 {
		return nil
	}
	if err := tx.Debit(ctx, from, o.Currency); err != nil {
		return fmt.Errorf("failed to debit %d from %s: %w", o.Currency, from, err)
	}
	if err := tx.Credit(ctx, to, o.Currency); err != nil {
		return fmt.Errorf("failed to credit %d to %s: %w", o.Currency, to, err)
	}
	return nil
}
