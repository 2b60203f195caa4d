package cache

import (
	"context"
	"sync"
	"time"
)

// ServiceConfig configures the cache service.
type ServiceConfig struct {
	Capacity        int              // Maximum number of entries (default: 10000)
	DefaultTTL      time.Duration    // TTL used when Set is given none (default: 30 minutes)
	CleanupInterval time.Duration    // Interval for expired entry cleanup (default: 1 minute)
	Clock           func() time.Time // Time source (default: time.Now)
}

// DefaultServiceConfig returns default cache service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Capacity:        10000,
		DefaultTTL:      30 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Service implements EphemeralStore in process with LRU eviction.
type Service struct {
	lru *LRUCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupInterval time.Duration
}

// NewService creates a new cache service and starts its cleanup loop.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		lru:             NewLRUCache(cfg.Capacity, cfg.DefaultTTL, cfg.Clock),
		ctx:             ctx,
		cancel:          cancel,
		cleanupInterval: cfg.CleanupInterval,
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Close stops the cache service.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Get retrieves a value from cache.
func (s *Service) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := s.lru.Get(key); ok {
		return v, nil
	}
	return nil, ErrMiss
}

// Set stores a value in cache.
func (s *Service) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.lru.Set(key, value, ttl)
	return nil
}

// Update replaces a live value keeping its TTL.
func (s *Service) Update(_ context.Context, key string, value []byte) error {
	if !s.lru.Update(key, value) {
		return ErrMiss
	}
	return nil
}

// Delete removes a key.
func (s *Service) Delete(_ context.Context, key string) error {
	s.lru.Delete(key)
	return nil
}

// Size returns the number of entries in the cache.
func (s *Service) Size() int {
	return s.lru.Size()
}

// cleanupLoop periodically removes expired entries.
func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.lru.CleanupExpired()
		}
	}
}

var _ EphemeralStore = (*Service)(nil)
