package models

import (
	"time"

	"github.com/uptrace/bun"
)

// OpenTrade marks a user as busy with a session until ExpiresAt.
type OpenTrade struct {
	bun.BaseModel `bun:"table:open_trades,alias:ot"`

	UserID    string    `bun:"user_id,pk"`
	SessionID string    `bun:"session_id,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
