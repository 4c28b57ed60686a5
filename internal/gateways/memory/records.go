package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

// Records keeps trade records in memory. A record saved twice keeps its
// first version.
type Records struct {
	mu      sync.RWMutex
	byID    map[string]trade.Record
	ordered []string
}

func NewRecords() *Records {
	return &Records{byID: make(map[string]trade.Record)}
}

func (r *Records) Save(_ context.Context, rec trade.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[rec.SessionID]; exists {
		return nil
	}
	r.byID[rec.SessionID] = rec
	r.ordered = append(r.ordered, rec.SessionID)
	return nil
}

func (r *Records) Get(_ context.Context, sessionID string) (trade.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[sessionID]
	if !ok {
		return trade.Record{}, trade.ErrSessionNotFound
	}
	return rec, nil
}

func (r *Records) LoadRecent(_ context.Context, userID string, limit int) ([]trade.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []trade.Record
	for _, id := range slices.Backward(r.ordered) {
		rec := r.byID[id]
		if _, ok := rec.PartyOf(userID); !ok {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *Records) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}
