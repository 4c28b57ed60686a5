package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

const openTradePrefix = "tradebot:open_trade:"

// Sets the key when it is free or already ours. Expiry is left to Redis.
var acquireScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false or current == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

// Deletes the key only if this session still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Registry is a trade.SessionRegistry shared by every bot process that talks
// to the same Redis.
type Registry struct {
	client redis.Scripter
}

func NewRegistry(client redis.Scripter) *Registry {
	return &Registry{client: client}
}

func openTradeKey(userID string) string {
	return openTradePrefix + userID
}

func (r *Registry) Acquire(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	ok, err := acquireScript.Run(ctx, r.client, []string{openTradeKey(userID)}, sessionID, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to acquire open trade for %s: %w", userID, err)
	}
	if ok == 0 {
		return trade.ErrAlreadyTrading
	}
	return nil
}

func (r *Registry) Release(ctx context.Context, userID, sessionID string) error {
	if err := releaseScript.Run(ctx, r.client, []string{openTradeKey(userID)}, sessionID).Err(); err != nil {
		return fmt.Errorf("failed to release open trade for %s: %w", userID, err)
	}
	return nil
}

var _ trade.SessionRegistry = (*Registry)(nil)
