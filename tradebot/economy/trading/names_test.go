package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/database/models"
)

type fakeLoader struct {
	cards map[int64]*models.Card
	calls [][]int64
	err   error
}

func (l *fakeLoader) GetByIDs(_ context.Context, ids []int64) ([]*models.Card, error) {
	l.calls = append(l.calls, ids)
	if l.err != nil {
		return nil, l.err
	}
	var out []*models.Card
	for _, id := range ids {
		if c, ok := l.cards[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestCardNameCache_Lookup(t *testing.T) {
	loader := &fakeLoader{cards: map[int64]*models.Card{
		21: {ID: 21, Name: "next_level_karina", Level: 4},
	}}
	cache, err := NewCardNameCache(loader, 16)
	require.NoError(t, err)
	cache.Remember(testCards)

	names := cache.Lookup(context.Background(), []trade.CardID{11, 21, 99})
	assert.Equal(t, CardName{Name: "hoot_taeyeon", Level: 3}, names[11])
	assert.Equal(t, CardName{Name: "next_level_karina", Level: 4}, names[21])
	assert.Equal(t, CardName{Name: "#99"}, names[99])
	require.Len(t, loader.calls, 1)
	assert.ElementsMatch(t, []int64{21, 99}, loader.calls[0])

	// Loaded names are cached.
	cache.Lookup(context.Background(), []trade.CardID{21})
	assert.Len(t, loader.calls, 1)
}

func TestCardNameCache_LoaderError(t *testing.T) {
	cache, err := NewCardNameCache(&fakeLoader{err: errors.New("db down")}, 16)
	require.NoError(t, err)

	names := cache.Lookup(context.Background(), []trade.CardID{5})
	assert.Equal(t, "#5", names[5].Name)
}

func TestNewCardNameCache_InvalidSize(t *testing.T) {
	_, err := NewCardNameCache(nil, 0)
	assert.Error(t, err)
}
