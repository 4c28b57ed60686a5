package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/database/models"
	"github.com/disgoorg/tradebot/tradebot/economy/utils"
)

// InventoryStore is the Postgres implementation of trade.InventoryStore.
type InventoryStore struct {
	*BaseRepository
	etm *utils.EconomicTransactionManager
}

func NewInventoryStore(db *bun.DB) *InventoryStore {
	return &InventoryStore{
		BaseRepository: NewBaseRepository(db),
		etm:            utils.NewEconomicTransactionManager(db),
	}
}

type snapshotRow struct {
	CardID int64  `bun:"card_id"`
	Name   string `bun:"name"`
	Level  int    `bun:"level"`
	Amount int64  `bun:"amount"`
}

func (s *InventoryStore) Snapshot(ctx context.Context, userID string) (trade.Snapshot, error) {
	var rows []snapshotRow
	err := s.SelectWithTimeout(ctx, "snapshot", "user_cards", userID, func(ctx context.Context) error {
		return s.db.NewSelect().
			TableExpr("user_cards AS uc").
			ColumnExpr("uc.card_id, c.name, c.level, uc.amount").
			Join("JOIN cards AS c ON c.id = uc.card_id").
			Where("uc.user_id = ?", userID).
			Where("uc.amount > 0").
			Where("uc.locked = false").
			OrderExpr("uc.card_id ASC").
			Scan(ctx, &rows)
	})
	if err != nil && !IsNotFound(err) {
		return trade.Snapshot{}, err
	}

	var balance int64
	err = s.SelectWithTimeout(ctx, "snapshot", "users", userID, func(ctx context.Context) error {
		return s.db.NewSelect().
			Model((*models.User)(nil)).
			Column("balance").
			Where("discord_id = ?", userID).
			Scan(ctx, &balance)
	})
	if err != nil && !IsNotFound(err) {
		return trade.Snapshot{}, err
	}

	snap := trade.Snapshot{UserID: userID, Balance: balance, TakenAt: time.Now()}
	for _, row := range rows {
		snap.Cards = append(snap.Cards, trade.OwnedCard{
			ID:     trade.CardID(row.CardID),
			Name:   row.Name,
			Level:  row.Level,
			Amount: row.Amount,
		})
	}
	return snap, nil
}

// Atomic runs fn in one read-committed transaction. Row locks taken through
// the tx are held until commit or rollback.
func (s *InventoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx trade.InventoryTx) error) error {
	return s.etm.WithTransaction(ctx, utils.StandardTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &inventoryTx{tx: tx, etm: s.etm})
	})
}

type inventoryTx struct {
	tx  bun.Tx
	etm *utils.EconomicTransactionManager
}

func (t *inventoryTx) LockCards(ctx context.Context, userID string, ids []trade.CardID) ([]trade.CardID, error) {
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	owned, err := t.etm.LockTradeableCards(ctx, t.tx, userID, raw)
	if err != nil {
		return nil, err
	}
	out := make([]trade.CardID, len(owned))
	for i, id := range owned {
		out[i] = trade.CardID(id)
	}
	return out, nil
}

func (t *inventoryTx) LockBalance(ctx context.Context, userID string) (int64, error) {
	return t.etm.LockBalance(ctx, t.tx, userID)
}

func (t *inventoryTx) MoveCard(ctx context.Context, from, to string, id trade.CardID) error {
	return t.etm.TransferCard(ctx, t.tx, from, to, int64(id), utils.CopiesPerCardID)
}

func (t *inventoryTx) Debit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return errors.New("debit amount must not be negative")
	}
	return t.etm.ValidateAndUpdateBalance(ctx, t.tx, utils.BalanceOperationOptions{UserID: userID, Amount: -amount})
}

func (t *inventoryTx) Credit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return errors.New("credit amount must not be negative")
	}
	return t.etm.ValidateAndUpdateBalance(ctx, t.tx, utils.BalanceOperationOptions{UserID: userID, Amount: amount})
}

var _ trade.InventoryStore = (*InventoryStore)(nil)
