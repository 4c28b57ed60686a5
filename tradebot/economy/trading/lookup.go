package trading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

var ErrNoCardMatch = errors.New("no card in your inventory matches")

// cardSource implements fuzzy.Source over snapshot cards.
type cardSource []trade.OwnedCard

func (s cardSource) Len() int            { return len(s) }
func (s cardSource) String(i int) string { return normalizeName(s[i].Name) }

// normalizeName makes "hoot_taeyeon" and "Hoot Taeyeon" compare equal.
func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", " "))
}

// FindCard resolves a player's query against cards. A numeric query matches
// the card id, an exact name wins over fuzzy matches, and otherwise the best
// fuzzy match is returned.
func FindCard(cards []trade.OwnedCard, query string) (trade.OwnedCard, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return trade.OwnedCard{}, fmt.Errorf("%w: empty query", ErrNoCardMatch)
	}

	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		for _, c := range cards {
			if int64(c.ID) == id {
				return c, nil
			}
		}
	}

	normalized := normalizeName(query)
	for _, c := range cards {
		if normalizeName(c.Name) == normalized {
			return c, nil
		}
	}

	matches := fuzzy.FindFrom(normalized, cardSource(cards))
	if len(matches) == 0 {
		return trade.OwnedCard{}, fmt.Errorf("%w %q", ErrNoCardMatch, query)
	}
	return cards[matches[0].Index], nil
}

// SuggestCards returns up to limit cards ranked by fuzzy score, for
// autocomplete. An empty query returns the first cards in order.
func SuggestCards(cards []trade.OwnedCard, query string, limit int) []trade.OwnedCard {
	if limit <= 0 {
		return nil
	}
	normalized := normalizeName(query)
	if normalized == "" {
		return cards[:min(limit, len(cards))]
	}

	matches := fuzzy.FindFrom(normalized, cardSource(cards))
	out := make([]trade.OwnedCard, 0, min(limit, len(matches)))
	for _, m := range matches[:min(limit, len(matches))] {
		out = append(out, cards[m.Index])
	}
	return out
}
