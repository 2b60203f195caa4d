package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aicache "github.com/hrygo/quillmate/plugin/ai/cache"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	config := DefaultRedisConfig()
	config.Addr = mr.Addr()
	rc, err := NewRedisCache(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return rc, mr
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	_, err := rc.Get(ctx, "guest_missing")
	assert.ErrorIs(t, err, aicache.ErrMiss)

	require.NoError(t, rc.Set(ctx, "guest_1", []byte(`{"id":"guest_1"}`), 30*time.Minute))
	assert.True(t, mr.Exists("quillmate:guest_1"))

	got, err := rc.Get(ctx, "guest_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"guest_1"}`, string(got))

	require.NoError(t, rc.Delete(ctx, "guest_1"))
	_, err = rc.Get(ctx, "guest_1")
	assert.ErrorIs(t, err, aicache.ErrMiss)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	require.NoError(t, rc.Set(ctx, "guest_ttl", []byte("v1"), 30*time.Minute))

	mr.FastForward(20 * time.Minute)
	require.NoError(t, rc.Update(ctx, "guest_ttl", []byte("v2")))
	assert.Equal(t, 10*time.Minute, mr.TTL("quillmate:guest_ttl"), "update keeps the remaining TTL")

	_, err := rc.Get(ctx, "guest_ttl")
	require.NoError(t, err)

	mr.FastForward(10 * time.Minute)
	_, err = rc.Get(ctx, "guest_ttl")
	assert.ErrorIs(t, err, aicache.ErrMiss)

	assert.ErrorIs(t, rc.Update(ctx, "guest_ttl", []byte("v3")), aicache.ErrMiss, "update never recreates an expired key")
}

func TestRedisCache_ConnectivityFailure(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)
	mr.Close()

	_, err := rc.Get(ctx, "guest_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, aicache.ErrMiss)
}
