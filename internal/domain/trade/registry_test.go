package trade

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRegistry()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Acquire(ctx, "100", "TR-A", time.Minute))
	assert.NoError(t, r.Acquire(ctx, "100", "TR-A", time.Minute), "same session may acquire twice")
	assert.ErrorIs(t, r.Acquire(ctx, "100", "TR-B", time.Minute), ErrAlreadyTrading)

	// Release by a session that does not hold the user is ignored.
	require.NoError(t, r.Release(ctx, "100", "TR-B"))
	holder, ok := r.Holder("100")
	require.True(t, ok)
	assert.Equal(t, "TR-A", holder)

	require.NoError(t, r.Release(ctx, "100", "TR-A"))
	_, ok = r.Holder("100")
	assert.False(t, ok)
	assert.NoError(t, r.Acquire(ctx, "100", "TR-B", time.Minute))
}

func TestMemoryRegistry_ExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRegistry()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Acquire(ctx, "100", "TR-A", time.Minute))
	require.NoError(t, r.Acquire(ctx, "200", "TR-A", time.Minute))

	now = now.Add(2 * time.Minute)
	assert.NoError(t, r.Acquire(ctx, "100", "TR-B", time.Minute), "expired entry is taken over")
	holder, _ := r.Holder("100")
	assert.Equal(t, "TR-B", holder)

	assert.Equal(t, 1, r.cleanupExpired())
	_, ok := r.Holder("200")
	assert.False(t, ok)
}

func TestNewSessionID(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for range 50 {
		id, err := NewSessionID(now)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "TR-"), id)
		assert.Len(t, strings.Split(id, "-"), 3)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 40)
}
