package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/database/models"
)

// TradeRecordRepository stores finished sessions in trade_records. Records
// are append-only: a second Save for the same session is ignored.
type TradeRecordRepository interface {
	trade.RecordStore
	CountByOutcome(ctx context.Context, userID string) (map[trade.Outcome]int, error)
}

type tradeRecordRepository struct {
	*BaseRepository
}

func NewTradeRecordRepository(db *bun.DB) TradeRecordRepository {
	return &tradeRecordRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *tradeRecordRepository) Save(ctx context.Context, rec trade.Record) error {
	row := recordToRow(rec)
	_, err := r.ExecWithTimeout(ctx, "save", "trade_records", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewInsert().
			Model(row).
			On("CONFLICT (session_id) DO NOTHING").
			Exec(ctx)
	})
	return err
}

func (r *tradeRecordRepository) Get(ctx context.Context, sessionID string) (trade.Record, error) {
	row := new(models.TradeRecord)
	err := r.SelectWithTimeout(ctx, "get", "trade_records", sessionID, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(row).
			Where("session_id = ?", sessionID).
			Scan(ctx)
	})
	if IsNotFound(err) {
		return trade.Record{}, trade.ErrSessionNotFound
	}
	if err != nil {
		return trade.Record{}, err
	}
	return rowToRecord(row), nil
}

func (r *tradeRecordRepository) LoadRecent(ctx context.Context, userID string, limit int) ([]trade.Record, error) {
	var rows []*models.TradeRecord
	err := r.SelectWithTimeout(ctx, "load_recent", "trade_records", userID, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&rows).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("initiator_id = ?", userID).WhereOr("counterparty_id = ?", userID)
			}).
			OrderExpr("finished_at DESC, id DESC").
			Limit(limit).
			Scan(ctx)
	})
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	records := make([]trade.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToRecord(row))
	}
	return records, nil
}

// CountByOutcome tallies a user's finished trades per outcome.
func (r *tradeRecordRepository) CountByOutcome(ctx context.Context, userID string) (map[trade.Outcome]int, error) {
	var rows []struct {
		Outcome string `bun:"outcome"`
		Count   int    `bun:"count"`
	}
	err := r.SelectWithTimeout(ctx, "count_by_outcome", "trade_records", userID, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model((*models.TradeRecord)(nil)).
			ColumnExpr("outcome, COUNT(*) AS count").
			Where("initiator_id = ? OR counterparty_id = ?", userID, userID).
			Group("outcome").
			Scan(ctx, &rows)
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !IsNotFound(err) {
		return nil, err
	}

	counts := make(map[trade.Outcome]int, len(rows))
	for _, row := range rows {
		counts[trade.Outcome(row.Outcome)] = row.Count
	}
	return counts, nil
}

func recordToRow(rec trade.Record) *models.TradeRecord {
	row := &models.TradeRecord{
		SessionID:         rec.SessionID,
		InitiatorID:       rec.Initiator.UserID,
		InitiatorName:     rec.Initiator.Name,
		CounterpartyID:    rec.Counterparty.UserID,
		CounterpartyName:  rec.Counterparty.Name,
		InitiatorOffer:    offerToRow(rec.InitiatorOffer),
		CounterpartyOffer: offerToRow(rec.CounterpartyOffer),
		Outcome:           string(rec.Outcome),
		Reason:            rec.Reason,
		CancelledBy:       rec.CancelledBy,
		CreatedAt:         rec.CreatedAt,
		FinishedAt:        rec.FinishedAt,
	}
	for _, role := range rec.StaleSides {
		row.StaleSides = append(row.StaleSides, string(role))
	}
	return row
}

func rowToRecord(row *models.TradeRecord) trade.Record {
	initiator := trade.Party{UserID: row.InitiatorID, Name: row.InitiatorName, Role: trade.RoleInitiator}
	counterparty := trade.Party{UserID: row.CounterpartyID, Name: row.CounterpartyName, Role: trade.RoleCounterparty}
	rec := trade.Record{
		SessionID:         row.SessionID,
		Initiator:         initiator,
		Counterparty:      counterparty,
		InitiatorOffer:    rowToOffer(initiator, row.InitiatorOffer),
		CounterpartyOffer: rowToOffer(counterparty, row.CounterpartyOffer),
		Outcome:           trade.Outcome(row.Outcome),
		Reason:            row.Reason,
		CancelledBy:       row.CancelledBy,
		CreatedAt:         row.CreatedAt,
		FinishedAt:        row.FinishedAt,
	}
	for _, role := range row.StaleSides {
		rec.StaleSides = append(rec.StaleSides, trade.Role(role))
	}
	return rec
}

func offerToRow(o trade.Offer) models.TradeOffer {
	cards := make([]int64, len(o.Cards))
	for i, id := range o.Cards {
		cards[i] = int64(id)
	}
	return models.TradeOffer{Cards: cards, Currency: o.Currency}
}

func rowToOffer(owner trade.Party, o models.TradeOffer) trade.Offer {
	offer := trade.Offer{Owner: owner, Currency: o.Currency}
	for _, id := range o.Cards {
		offer.Cards = append(offer.Cards, trade.CardID(id))
	}
	return offer
}
