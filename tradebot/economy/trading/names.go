package trading

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/database/models"
)

// CardLoader fetches catalog cards by id.
type CardLoader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error)
}

type CardName struct {
	Name  string
	Level int
}

// CardNameCache resolves card ids to display names for embeds, hitting the
// loader only for ids it has not seen.
type CardNameCache struct {
	loader CardLoader
	cache  *lru.Cache
}

func NewCardNameCache(loader CardLoader, size int) (*CardNameCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create card name cache: %w", err)
	}
	return &CardNameCache{loader: loader, cache: cache}, nil
}

// Remember seeds the cache from a snapshot, which already carries names.
func (c *CardNameCache) Remember(cards []trade.OwnedCard) {
	for _, card := range cards {
		c.cache.Add(card.ID, CardName{Name: card.Name, Level: card.Level})
	}
}

// Lookup returns names for ids. Ids the loader does not know fall back to
// "#<id>" so an outcome can always be rendered.
func (c *CardNameCache) Lookup(ctx context.Context, ids []trade.CardID) map[trade.CardID]CardName {
	out := make(map[trade.CardID]CardName, len(ids))
	var missing []int64
	for _, id := range ids {
		if v, ok := c.cache.Get(id); ok {
			out[id] = v.(CardName)
			continue
		}
		missing = append(missing, int64(id))
	}

	if len(missing) > 0 && c.loader != nil {
		cards, err := c.loader.GetByIDs(ctx, missing)
		if err != nil {
			slog.Warn("Failed to load card names",
				slog.String("type", "trade"),
				slog.Int("cards", len(missing)),
				slog.Any("error", err))
		}
		for _, card := range cards {
			n := CardName{Name: card.Name, Level: card.Level}
			c.cache.Add(trade.CardID(card.ID), n)
			out[trade.CardID(card.ID)] = n
		}
	}

	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = CardName{Name: fmt.Sprintf("#%d", id)}
		}
	}
	return out
}
