package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

func seeded() *Inventory {
	inv := NewInventory()
	inv.SetBalance("1", 100)
	inv.GiveCard("1", 7, "hoot_taeyeon", 2)
	inv.GiveCard("1", 8, "lovedive_wonyoung", 1)
	inv.SetBalance("2", 50)
	return inv
}

func TestInventory_SnapshotSkipsLockedCards(t *testing.T) {
	inv := seeded()
	inv.SetLocked("1", 8, true)

	snap, err := inv.Snapshot(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), snap.Balance)
	require.Len(t, snap.Cards, 1)
	assert.Equal(t, trade.CardID(7), snap.Cards[0].ID)
	assert.Equal(t, int64(2), snap.Cards[0].Amount)

	_, err = inv.Snapshot(context.Background(), "404")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestInventory_AtomicCommits(t *testing.T) {
	inv := seeded()

	err := inv.Atomic(context.Background(), func(ctx context.Context, tx trade.InventoryTx) error {
		owned, err := tx.LockCards(ctx, "1", []trade.CardID{7, 9})
		require.NoError(t, err)
		assert.Equal(t, []trade.CardID{7}, owned)

		if err := tx.MoveCard(ctx, "1", "2", 7); err != nil {
			return err
		}
		if err := tx.Debit(ctx, "1", 30); err != nil {
			return err
		}
		return tx.Credit(ctx, "2", 30)
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), inv.Count("1", 7))
	assert.Equal(t, int64(1), inv.Count("2", 7))
	assert.Equal(t, int64(70), inv.Balance("1"))
	assert.Equal(t, int64(80), inv.Balance("2"))
}

func TestInventory_AtomicRollsBack(t *testing.T) {
	inv := seeded()
	before := inv.Holdings("1")

	err := inv.Atomic(context.Background(), func(ctx context.Context, tx trade.InventoryTx) error {
		require.NoError(t, tx.MoveCard(ctx, "1", "2", 8))
		require.NoError(t, tx.Debit(ctx, "1", 100))
		return tx.Debit(ctx, "2", 51)
	})
	require.Error(t, err)

	assert.Equal(t, before, inv.Holdings("1"))
	assert.Empty(t, inv.Holdings("2"))
	assert.Equal(t, int64(100), inv.Balance("1"))
	assert.Equal(t, int64(50), inv.Balance("2"))
}

func TestInventory_FailOn(t *testing.T) {
	inv := seeded()
	boom := errors.New("disk full")
	inv.FailOn("credit", boom)

	err := inv.Atomic(context.Background(), func(ctx context.Context, tx trade.InventoryTx) error {
		require.NoError(t, tx.Debit(ctx, "1", 10))
		return tx.Credit(ctx, "2", 10)
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(100), inv.Balance("1"))

	inv.FailOn("credit", nil)
	err = inv.Atomic(context.Background(), func(ctx context.Context, tx trade.InventoryTx) error {
		return tx.Credit(ctx, "2", 10)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), inv.Balance("2"))
}

func TestInventory_MoveLockedCardFails(t *testing.T) {
	inv := seeded()
	inv.SetLocked("1", 7, true)

	err := inv.Atomic(context.Background(), func(ctx context.Context, tx trade.InventoryTx) error {
		return tx.MoveCard(ctx, "1", "2", 7)
	})
	assert.Error(t, err)
	assert.Equal(t, int64(2), inv.Count("1", 7))
}
