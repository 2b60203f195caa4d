package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/hrygo/quillmate/internal/profile"
	aicache "github.com/hrygo/quillmate/plugin/ai/cache"
)

// RedisCacheConfig holds the Redis connection configuration.
type RedisCacheConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "quillmate:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisConfigFromProfile builds the connection config from the redis.* profile keys.
func RedisConfigFromProfile(p profile.RedisProfile) *RedisCacheConfig {
	config := DefaultRedisConfig()
	config.Addr = p.Addr
	config.Password = p.Password
	config.DB = p.DB
	if p.Prefix != "" {
		config.KeyPrefix = p.Prefix
	}
	return config
}

// RedisCache is the go-redis backed EphemeralStore used for guest sessions
// when more than one instance serves traffic.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, config *RedisCacheConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("Redis guest store connected", "addr", config.Addr)

	return &RedisCache{
		client:    client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, aicache.ErrMiss
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s", key)
	}
	return data, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.fullKey(key), value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to set %s", key)
	}
	return nil
}

// Update uses SET XX KEEPTTL so the remaining TTL survives and absent keys stay absent.
func (r *RedisCache) Update(ctx context.Context, key string, value []byte) error {
	err := r.client.SetArgs(ctx, r.fullKey(key), value, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return aicache.ErrMiss
	}
	if err != nil {
		return errors.Wrapf(err, "failed to update %s", key)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) fullKey(key string) string {
	return r.keyPrefix + key
}

var _ aicache.EphemeralStore = (*RedisCache)(nil)
