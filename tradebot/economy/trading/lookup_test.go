package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

var testCards = []trade.OwnedCard{
	{ID: 11, Name: "hoot_taeyeon", Level: 3, Amount: 1},
	{ID: 12, Name: "lovedive_wonyoung", Level: 5, Amount: 2},
	{ID: 13, Name: "hype_boy_hanni", Level: 1, Amount: 1},
}

func TestFindCard(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  trade.CardID
	}{
		{name: "by id", query: "12", want: 12},
		{name: "exact name", query: "hoot_taeyeon", want: 11},
		{name: "spaces and case", query: "Hype Boy Hanni", want: 13},
		{name: "fuzzy", query: "wonyo", want: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card, err := FindCard(testCards, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, card.ID)
		})
	}
}

func TestFindCard_NoMatch(t *testing.T) {
	_, err := FindCard(testCards, "zzzz")
	assert.ErrorIs(t, err, ErrNoCardMatch)

	_, err = FindCard(testCards, "  ")
	assert.ErrorIs(t, err, ErrNoCardMatch)

	_, err = FindCard(nil, "hoot")
	assert.ErrorIs(t, err, ErrNoCardMatch)
}

func TestSuggestCards(t *testing.T) {
	assert.Len(t, SuggestCards(testCards, "", 2), 2)
	assert.Empty(t, SuggestCards(testCards, "hoot", 0))

	got := SuggestCards(testCards, "hanni", 5)
	require.Len(t, got, 1)
	assert.Equal(t, trade.CardID(13), got[0].ID)
}
