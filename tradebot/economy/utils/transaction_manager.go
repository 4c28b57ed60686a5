package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/database/models"
)

// TransactionOptions configures transaction behavior
type TransactionOptions struct {
	IsolationLevel sql.IsolationLevel
	Timeout        time.Duration
}

// EconomicTransactionManager holds the row-level primitives every inventory
// mutation is built from. All methods except WithTransaction expect to run
// inside a transaction it opened.
type EconomicTransactionManager struct {
	db *bun.DB
}

func NewEconomicTransactionManager(db *bun.DB) *EconomicTransactionManager {
	return &EconomicTransactionManager{db: db}
}

// StandardTransactionOptions returns default transaction options
func StandardTransactionOptions() *TransactionOptions {
	return &TransactionOptions{
		IsolationLevel: sql.LevelReadCommitted,
		Timeout:        DefaultTxTimeout,
	}
}

// WithTransaction executes fn within a database transaction. Any error from
// fn rolls the transaction back.
func (etm *EconomicTransactionManager) WithTransaction(ctx context.Context, opts *TransactionOptions, fn func(context.Context, bun.Tx) error) error {
	if opts == nil {
		opts = StandardTransactionOptions()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	tx, err := etm.db.BeginTx(timeoutCtx, &sql.TxOptions{Isolation: opts.IsolationLevel})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(timeoutCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockTradeableCards takes row locks on the user's copies of cardIDs that
// are tradeable (amount > 0 and not locked) and returns their card ids.
func (etm *EconomicTransactionManager) LockTradeableCards(ctx context.Context, tx bun.Tx, userID string, cardIDs []int64) ([]int64, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}

	var rows []models.UserCard
	err := tx.NewSelect().
		Model(&rows).
		Column("card_id").
		Where("user_id = ?", userID).
		Where("card_id IN (?)", bun.In(cardIDs)).
		Where("amount > 0").
		Where("locked = false").
		OrderExpr("card_id ASC").
		For("UPDATE").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock user cards: %w", err)
	}

	owned := make([]int64, 0, len(rows))
	for _, row := range rows {
		owned = append(owned, row.CardID)
	}
	return owned, nil
}

// LockBalance locks the user's row and returns the balance. A user without a
// row has a zero balance.
func (etm *EconomicTransactionManager) LockBalance(ctx context.Context, tx bun.Tx, userID string) (int64, error) {
	var user models.User
	err := tx.NewSelect().
		Model(&user).
		Column("balance").
		Where("discord_id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user balance: %w", err)
	}
	return user.Balance, nil
}

// CardOperationOptions configures card inventory operations
type CardOperationOptions struct {
	UserID string
	CardID int64
	Amount int64
}

// AddCardToInventory adds cards to user inventory with UPSERT logic
func (etm *EconomicTransactionManager) AddCardToInventory(ctx context.Context, tx bun.Tx, opts CardOperationOptions) error {
	now := time.Now()
	_, err := tx.NewInsert().
		Model(&models.UserCard{
			UserID:    opts.UserID,
			CardID:    opts.CardID,
			Amount:    opts.Amount,
			Obtained:  now,
			CreatedAt: now,
			UpdatedAt: now,
		}).
		On("CONFLICT (user_id, card_id) DO UPDATE").
		Set("amount = uc.amount + EXCLUDED.amount").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add card to inventory: %w", err)
	}
	return nil
}

// RemoveCardFromInventory removes tradeable copies from the user's inventory.
// Rows that reach zero are deleted.
func (etm *EconomicTransactionManager) RemoveCardFromInventory(ctx context.Context, tx bun.Tx, opts CardOperationOptions) error {
	var userCard models.UserCard
	err := tx.NewSelect().
		Model(&userCard).
		Where("user_id = ? AND card_id = ?", opts.UserID, opts.CardID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: card %d", trade.ErrCardNotOwned, opts.CardID)
	}
	if err != nil {
		return fmt.Errorf("failed to get user card: %w", err)
	}

	if userCard.Locked || userCard.Amount < opts.Amount {
		return fmt.Errorf("%w: card %d (has %d, needs %d)", trade.ErrCardNotOwned, opts.CardID, userCard.Amount, opts.Amount)
	}

	if userCard.Amount == opts.Amount {
		_, err = tx.NewDelete().
			Model((*models.UserCard)(nil)).
			Where("id = ?", userCard.ID).
			Exec(ctx)
	} else {
		_, err = tx.NewUpdate().
			Model((*models.UserCard)(nil)).
			Set("amount = amount - ?", opts.Amount).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", userCard.ID).
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to remove card from inventory: %w", err)
	}
	return nil
}

// TransferCard moves amount copies of a card between users.
func (etm *EconomicTransactionManager) TransferCard(ctx context.Context, tx bun.Tx, fromUserID, toUserID string, cardID int64, amount int64) error {
	if err := etm.RemoveCardFromInventory(ctx, tx, CardOperationOptions{
		UserID: fromUserID,
		CardID: cardID,
		Amount: amount,
	}); err != nil {
		return fmt.Errorf("failed to remove card from source: %w", err)
	}

	if err := etm.AddCardToInventory(ctx, tx, CardOperationOptions{
		UserID: toUserID,
		CardID: cardID,
		Amount: amount,
	}); err != nil {
		return fmt.Errorf("failed to add card to destination: %w", err)
	}
	return nil
}

// BalanceOperationOptions configures balance operations
type BalanceOperationOptions struct {
	UserID string
	Amount int64
}

// ValidateAndUpdateBalance applies a signed delta to the user's balance,
// refusing to take it below zero. Credits to a user without a row create it.
func (etm *EconomicTransactionManager) ValidateAndUpdateBalance(ctx context.Context, tx bun.Tx, opts BalanceOperationOptions) error {
	if opts.Amount >= 0 {
		now := time.Now()
		_, err := tx.NewInsert().
			Model(&models.User{
				DiscordID: opts.UserID,
				Username:  opts.UserID,
				Balance:   opts.Amount,
				Joined:    now,
				CreatedAt: now,
				UpdatedAt: now,
			}).
			On("CONFLICT (discord_id) DO UPDATE").
			Set("balance = u.balance + EXCLUDED.balance").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to credit balance: %w", err)
		}
		return nil
	}

	balance, err := etm.LockBalance(ctx, tx, opts.UserID)
	if err != nil {
		return err
	}
	if balance < -opts.Amount {
		return fmt.Errorf("%w (has %d, needs %d)", trade.ErrInsufficientBalance, balance, -opts.Amount)
	}

	result, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("balance = balance + ?", opts.Amount).
		Set("updated_at = ?", time.Now()).
		Where("discord_id = ?", opts.UserID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("user not found when updating balance")
	}
	return nil
}

// GetDB returns the underlying database connection
func (etm *EconomicTransactionManager) GetDB() *bun.DB {
	return etm.db
}
