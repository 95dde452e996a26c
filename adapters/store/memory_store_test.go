package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/jwtgate/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func challengeAt(id string, now time.Time, ttl time.Duration) core.Challenge {
	return core.Challenge{SessionID: id, Answer: "42", CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestMemoryStoreConsumeRemovesRecord(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(0, WithClock(clock.Now))
	defer s.Close()

	require.NoError(t, s.Save(ctx, challengeAt("abc", clock.Now(), time.Minute)))

	got, found, err := s.Consume(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "42", got.Answer)

	_, found, err = s.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreConsumeUnknown(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	_, found, err := s.Consume(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(0, WithClock(clock.Now))
	defer s.Close()

	ttl := 5 * time.Minute

	require.NoError(t, s.Save(ctx, challengeAt("before", clock.Now(), ttl)))
	require.NoError(t, s.Save(ctx, challengeAt("at", clock.Now(), ttl)))

	clock.Advance(ttl - time.Millisecond)
	_, found, err := s.Consume(ctx, "before")
	require.NoError(t, err)
	assert.True(t, found, "consumed strictly before ttl elapses")

	clock.Advance(time.Millisecond)
	_, found, err = s.Consume(ctx, "at")
	require.NoError(t, err)
	assert.False(t, found, "consumed once ttl has elapsed")
	assert.Equal(t, 0, s.Len(), "expired record is still removed on lookup")
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(0, WithClock(clock.Now))
	defer s.Close()

	require.NoError(t, s.Save(ctx, challengeAt("short", clock.Now(), time.Minute)))
	require.NoError(t, s.Save(ctx, challengeAt("long", clock.Now(), time.Hour)))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	pending, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "long", pending[0].SessionID)
}

func TestMemoryStoreBackgroundSweeper(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(5 * time.Millisecond)
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.Save(ctx, core.Challenge{SessionID: "gone", CreatedAt: now, ExpiresAt: now.Add(time.Millisecond)}))

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreCloseIsIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Millisecond)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestMemoryStoreConcurrentConsumeSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Millisecond)
	defer s.Close()

	for round := 0; round < 50; round++ {
		now := time.Now()
		require.NoError(t, s.Save(ctx, core.Challenge{SessionID: "race", Answer: "x", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

		var winners int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, found, _ := s.Consume(ctx, "race"); found {
					atomic.AddInt32(&winners, 1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), winners, "round %d", round)
	}
}
