package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/database/models"
)

// OpenTradeRepository backs the one-open-trade-per-user rule with the
// open_trades table, so it holds across bot restarts and shards.
type OpenTradeRepository interface {
	trade.SessionRegistry
	Holder(ctx context.Context, userID string) (*models.OpenTrade, error)
	List(ctx context.Context) ([]*models.OpenTrade, error)
	SweepExpired(ctx context.Context) (int64, error)
}

type openTradeRepository struct {
	*BaseRepository
	now func() time.Time
}

func NewOpenTradeRepository(db *bun.DB) OpenTradeRepository {
	return &openTradeRepository{BaseRepository: NewBaseRepository(db), now: time.Now}
}

// Acquire inserts the user's row, or takes it over when it belongs to the
// same session or has expired. Anything else means the user is busy.
func (r *openTradeRepository) Acquire(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	now := r.now()
	row := &models.OpenTrade{
		UserID:    userID,
		SessionID: sessionID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	affected, err := r.ExecWithTimeout(ctx, "acquire", "open_trades", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewInsert().
			Model(row).
			On("CONFLICT (user_id) DO UPDATE").
			Set("session_id = EXCLUDED.session_id").
			Set("expires_at = EXCLUDED.expires_at").
			Set("created_at = EXCLUDED.created_at").
			Where("ot.session_id = EXCLUDED.session_id OR ot.expires_at < ?", now).
			Exec(ctx)
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return trade.ErrAlreadyTrading
	}
	return nil
}

func (r *openTradeRepository) Release(ctx context.Context, userID, sessionID string) error {
	_, err := r.ExecWithTimeout(ctx, "release", "open_trades", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewDelete().
			Model((*models.OpenTrade)(nil)).
			Where("user_id = ? AND session_id = ?", userID, sessionID).
			Exec(ctx)
	})
	return err
}

func (r *openTradeRepository) Holder(ctx context.Context, userID string) (*models.OpenTrade, error) {
	row := new(models.OpenTrade)
	err := r.SelectWithTimeout(ctx, "holder", "open_trades", userID, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(row).
			Where("user_id = ?", userID).
			Where("expires_at >= ?", r.now()).
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *openTradeRepository) List(ctx context.Context) ([]*models.OpenTrade, error) {
	var rows []*models.OpenTrade
	err := r.SelectWithTimeout(ctx, "list", "open_trades", nil, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&rows).
			OrderExpr("expires_at ASC").
			Scan(ctx)
	})
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	return rows, nil
}

// SweepExpired deletes rows left behind by sessions that never released,
// for example after a crash.
func (r *openTradeRepository) SweepExpired(ctx context.Context) (int64, error) {
	return r.ExecWithTimeout(ctx, "sweep_expired", "open_trades", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewDelete().
			Model((*models.OpenTrade)(nil)).
			Where("expires_at < ?", r.now()).
			Exec(ctx)
	})
}
