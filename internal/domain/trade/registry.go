package trade

import (
	"context"
	"sync"
	"time"
)

type openEntry struct {
	sessionID string
	expiresAt time.Time
}

// MemoryRegistry keeps open-session pointers in process memory. It only
// guarantees one open trade per user within a single bot instance.
type MemoryRegistry struct {
	active sync.Map
	now    func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{now: time.Now}
}

func (r *MemoryRegistry) Acquire(_ context.Context, userID, sessionID string, ttl time.Duration) error {
	entry := openEntry{sessionID: sessionID, expiresAt: r.now().Add(ttl)}

	v, loaded := r.active.LoadOrStore(userID, entry)
	if !loaded {
		return nil
	}

	current := v.(openEntry)
	if current.sessionID == sessionID {
		return nil
	}
	// Entries left behind past their TTL can be taken over.
	if r.now().After(current.expiresAt) && r.active.CompareAndSwap(userID, current, entry) {
		return nil
	}
	return ErrAlreadyTrading
}

func (r *MemoryRegistry) Release(_ context.Context, userID, sessionID string) error {
	v, ok := r.active.Load(userID)
	if !ok {
		return nil
	}
	if v.(openEntry).sessionID != sessionID {
		return nil
	}
	r.active.CompareAndDelete(userID, v)
	return nil
}

// Holder returns the session currently registered for the user.
func (r *MemoryRegistry) Holder(userID string) (string, bool) {
	v, ok := r.active.Load(userID)
	if !ok {
		return "", false
	}
	return v.(openEntry).sessionID, true
}

func (r *MemoryRegistry) cleanupExpired() int {
	now := r.now()
	removed := 0
	r.active.Range(func(key, value any) bool {
		if now.After(value.(openEntry).expiresAt) && r.active.CompareAndDelete(key, value) {
			removed++
		}
		return true
	})
	return removed
}

func (r *MemoryRegistry) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.cleanupExpired()
			}
		}
	}()
}
