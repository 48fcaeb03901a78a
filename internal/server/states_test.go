package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)
	s := newStateStore(time.Minute, func() time.Time { return now }, nil)

	s.Put(ctx, "a", surfaceTasks)
	s.Put(ctx, "b", surfaceCalendar)
	assert.Equal(t, 2, s.Len())

	surface, err := s.Consume(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, surfaceCalendar, surface)

	_, err = s.Consume(ctx, "b")
	assert.ErrorIs(t, err, errStateUnknown)

	_, err = s.Consume(ctx, "")
	assert.ErrorIs(t, err, errStateUnknown)

	now = now.Add(2 * time.Minute)
	_, err = s.Consume(ctx, "a")
	assert.ErrorIs(t, err, errStateExpired)
	assert.Equal(t, 0, s.Len())
}

func TestStateStore_PutSweepsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)
	s := newStateStore(0, func() time.Time { return now }, nil)

	s.Put(ctx, "old", surfaceTasks)
	now = now.Add(DefaultStateTTL + time.Second)
	s.Put(ctx, "new", surfaceTasks)

	assert.Equal(t, 1, s.Len())
	_, err := s.Consume(ctx, "new")
	assert.NoError(t, err)
}

func TestClientLimiter(t *testing.T) {
	now := time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("192.0.2.1"))
	assert.True(t, l.Allow("192.0.2.1"))
	assert.False(t, l.Allow("192.0.2.1"))
	assert.True(t, l.Allow("192.0.2.2"), "buckets are per IP")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("192.0.2.1"), "one token refills per second")

	now = now.Add(limiterIdleTimeout + time.Second)
	l.Allow("192.0.2.3")
	l.mu.Lock()
	assert.Len(t, l.limiters, 1, "idle buckets are dropped")
	l.mu.Unlock()
}
