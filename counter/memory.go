package counter

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore is a process-local [Store] over a TTL cache. It serves
// tests and single-process deployments; counters are not shared across
// replicas, so multi-instance setups must use [RedisStore].
type MemoryStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, int64]
}

// NewMemoryStore builds a running store. Call Stop when done to release
// the expiry janitor.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New[string, int64](
		ttlcache.WithDisableTouchOnHit[string, int64](),
	)
	go cache.Start()
	return &MemoryStore{cache: cache}
}

// Stop halts background expiry.
func (s *MemoryStore) Stop() {
	s.cache.Stop()
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return 0, false, nil
	}
	return item.Value(), true, nil
}

func (s *MemoryStore) SetWithExpiry(_ context.Context, key string, value int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		s.cache.Set(key, 1, ttlcache.NoTTL)
		return 1, nil
	}

	value := item.Value() + 1
	// Re-setting restarts the TTL clock, so carry the remaining lifetime
	// over to keep fixed-window semantics.
	s.cache.Set(key, value, remainingTTL(item))
	return value, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return nil
	}
	s.cache.Set(key, item.Value(), ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return 0, nil
	}
	ttl := remainingTTL(item)
	if ttl == ttlcache.NoTTL {
		return 0, nil
	}
	return ttl, nil
}

func remainingTTL(item *ttlcache.Item[string, int64]) time.Duration {
	if item.ExpiresAt().IsZero() {
		return ttlcache.NoTTL
	}
	remaining := time.Until(item.ExpiresAt())
	if remaining < 0 {
		return 0
	}
	return remaining
}

var _ Store = (*MemoryStore)(nil)
