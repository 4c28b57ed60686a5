package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the slice of the bot's user row the trade subsystem reads and
// writes. Other columns are left to the rest of the bot.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement"`
	DiscordID string    `bun:"discord_id,notnull,unique"`
	Username  string    `bun:"username,notnull"`
	Balance   int64     `bun:"balance,notnull,default:0"`
	Joined    time.Time `bun:"joined,notnull,default:current_timestamp"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
