package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore(policy SessionPolicy) (*MemorySessionStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemorySessionStore(policy)
	store.now = clock.Now
	return store, clock
}

func TestMemorySessionStore_AppendAndTrim(t *testing.T) {
	store, _ := newClockedStore(SessionPolicy{TTL: time.Hour, MaxTurns: 4, MaxSessions: 10})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, "s",
			ChatTurn{Role: RoleUser, Text: fmt.Sprintf("q%d", i)},
			ChatTurn{Role: RoleModel, Text: fmt.Sprintf("a%d", i)},
		))
	}

	history, err := store.History(ctx, "s")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "q1", history[0].Text)
	assert.Equal(t, "a2", history[3].Text)
}

func TestMemorySessionStore_SlidingTTL(t *testing.T) {
	store, clock := newClockedStore(SessionPolicy{TTL: time.Hour, MaxTurns: 10})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s", ChatTurn{Role: RoleUser, Text: "hi"}))

	clock.Advance(50 * time.Minute)
	history, _ := store.History(ctx, "s")
	assert.Len(t, history, 1, "reading refreshes the expiry")

	clock.Advance(50 * time.Minute)
	history, _ = store.History(ctx, "s")
	assert.Len(t, history, 1)

	clock.Advance(61 * time.Minute)
	history, _ = store.History(ctx, "s")
	assert.Empty(t, history)
}

func TestMemorySessionStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store, clock := newClockedStore(SessionPolicy{TTL: time.Hour, MaxTurns: 10, MaxSessions: 2})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", ChatTurn{Text: "1"}))
	clock.Advance(time.Second)
	require.NoError(t, store.Append(ctx, "b", ChatTurn{Text: "2"}))
	clock.Advance(time.Second)
	_, _ = store.History(ctx, "a")
	clock.Advance(time.Second)
	require.NoError(t, store.Append(ctx, "c", ChatTurn{Text: "3"}))

	b, _ := store.History(ctx, "b")
	a, _ := store.History(ctx, "a")
	assert.Empty(t, b)
	assert.Len(t, a, 1)
}

func TestMemorySessionStore_Delete(t *testing.T) {
	store := NewMemorySessionStore(DefaultSessionPolicy())
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s", ChatTurn{Text: "x"}))
	require.NoError(t, store.Delete(ctx, "s"))
	history, err := store.History(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, history)
}
