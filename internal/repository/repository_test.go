package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"prokat/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisCounterStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCounterStore(client), mr
}

func TestRedisCounterStore_Allow(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := store.Allow(ctx, "client-a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, err := store.Allow(ctx, "client-a", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request must be throttled")

	// Another key has its own counter.
	allowed, err = store.Allow(ctx, "client-b", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Window expiry resets the counter.
	mr.FastForward(time.Minute + time.Second)
	allowed, err = store.Allow(ctx, "client-a", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisCounterStore_NilClient(t *testing.T) {
	store := NewRedisCounterStore(nil)
	_, err := store.Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
}

func TestMemoryCounterStore_Allow(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := store.Allow(ctx, "k", 2, 50*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := store.Allow(ctx, "k", 2, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(60 * time.Millisecond)
	allowed, err = store.Allow(ctx, "k", 2, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}

type failingCounterStore struct{ calls int }

func (f *failingCounterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return false, errors.New("connection refused")
}

func TestFailoverCounterStore_FallsBack(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingCounterStore{}
	fallback := NewMemoryCounterStore()
	store := NewFailoverCounterStore(primary, fallback, &logger)
	ctx := context.Background()

	allowed, err := store.Allow(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, primary.calls)

	// Once marked down, the primary is left alone until the cool-down.
	allowed, err = store.Allow(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, primary.calls)
}

func TestFailoverCounterStore_UsesPrimaryWhenHealthy(t *testing.T) {
	logger := zerolog.Nop()
	store := NewFailoverCounterStore(NewMemoryCounterStore(), NewMemoryCounterStore(), &logger)
	ctx := context.Background()

	allowed, err := store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}
