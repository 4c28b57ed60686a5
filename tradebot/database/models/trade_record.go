package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TradeOffer is the JSON shape of one side's frozen offer.
type TradeOffer struct {
	Cards    []int64 `json:"cards"`
	Currency int64   `json:"currency"`
}

// TradeRecord is the append-only result of one trade session.
type TradeRecord struct {
	bun.BaseModel `bun:"table:trade_records,alias:tr"`

	ID                int64      `bun:"id,pk,autoincrement"`
	SessionID         string     `bun:"session_id,notnull,unique"`
	InitiatorID       string     `bun:"initiator_id,notnull"`
	InitiatorName     string     `bun:"initiator_name"`
	CounterpartyID    string     `bun:"counterparty_id,notnull"`
	CounterpartyName  string     `bun:"counterparty_name"`
	InitiatorOffer    TradeOffer `bun:"initiator_offer,type:jsonb,notnull"`
	CounterpartyOffer TradeOffer `bun:"counterparty_offer,type:jsonb,notnull"`
	Outcome           string     `bun:"outcome,notnull"`
	Reason            string     `bun:"reason"`
	StaleSides        []string   `bun:"stale_sides,type:jsonb"`
	CancelledBy       string     `bun:"cancelled_by"`
	CreatedAt         time.Time  `bun:"created_at,notnull"`
	FinishedAt        time.Time  `bun:"finished_at,notnull"`
}
