package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
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

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache(100, time.Minute, nil)

	t.Run("SetAndGet", func(t *testing.T) {
		cache.Set("key1", []byte("value1"), 0)

		val, ok := cache.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := cache.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		cache.Set("key2", []byte("original"), 0)
		assert.True(t, cache.Update("key2", []byte("updated")))

		val, ok := cache.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, []byte("updated"), val)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		assert.False(t, cache.Update("missing", []byte("x")))
	})

	t.Run("Delete", func(t *testing.T) {
		cache.Set("key3", []byte("v"), 0)
		cache.Delete("key3")
		_, ok := cache.Get("key3")
		assert.False(t, ok)
	})
}

func TestLRUCache_Expiration(t *testing.T) {
	clock := newFakeClock()
	cache := NewLRUCache(100, time.Minute, clock.Now)

	cache.Set("expiring", []byte("value"), 30*time.Minute)

	clock.Advance(29 * time.Minute)
	val, ok := cache.Get("expiring")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), val)

	clock.Advance(time.Minute)
	_, ok = cache.Get("expiring")
	assert.False(t, ok)
}

func TestLRUCache_ReadsAndUpdatesKeepTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewLRUCache(100, time.Minute, clock.Now)

	cache.Set("k", []byte("v1"), 10*time.Minute)
	clock.Advance(6 * time.Minute)
	_, ok := cache.Get("k")
	require.True(t, ok)
	require.True(t, cache.Update("k", []byte("v2")))

	clock.Advance(5 * time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok, "neither Get nor Update extends the TTL")

	cache.Set("k", []byte("v3"), 10*time.Minute)
	clock.Advance(9 * time.Minute)
	_, ok = cache.Get("k")
	assert.True(t, ok, "Set restarts the TTL")
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache(3, time.Minute, nil)

	cache.Set("key1", []byte("1"), 0)
	cache.Set("key2", []byte("2"), 0)
	cache.Set("key3", []byte("3"), 0)
	assert.Equal(t, 3, cache.Size())

	cache.Get("key1")

	cache.Set("key4", []byte("4"), 0)
	assert.Equal(t, 3, cache.Size())

	_, ok := cache.Get("key2")
	assert.False(t, ok)

	_, ok = cache.Get("key1")
	assert.True(t, ok)
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	clock := newFakeClock()
	cache := NewLRUCache(100, time.Minute, clock.Now)

	cache.Set("a", []byte("1"), time.Minute)
	cache.Set("b", []byte("2"), time.Hour)
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestService_EphemeralStore(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	clock := newFakeClock()
	svc := NewService(ServiceConfig{Clock: clock.Now, CleanupInterval: 10 * time.Millisecond})
	defer svc.Close()

	_, err := svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)
	assert.ErrorIs(t, svc.Update(ctx, "missing", []byte("x")), ErrMiss)

	require.NoError(t, svc.Set(ctx, "guest_1", []byte("blob"), 30*time.Minute))
	got, err := svc.Get(ctx, "guest_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), got)

	clock.Advance(31 * time.Minute)
	_, err = svc.Get(ctx, "guest_1")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, svc.Delete(ctx, "guest_1"))
}

func TestService_ConcurrentAccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	svc := NewService(DefaultServiceConfig())
	defer svc.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			_ = svc.Set(ctx, key, []byte{byte(i)}, time.Minute)
			_, _ = svc.Get(ctx, key)
			_ = svc.Update(ctx, key, []byte{byte(i + 1)})
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, svc.Size(), 26)
}
