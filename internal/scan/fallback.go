package scan

import (
	"context"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/redis"
)

// Fallback is one recovery strategy for a failed live scan. Strategies
// are tried in order; the first one that produces a non-empty snapshot
// wins. Each is independently testable.
type Fallback interface {
	Name() string
	Attempt(ctx context.Context) (*contracts.CacheEntry, bool)
}

// RedisFallback serves the warm-start mirror written by RedisSink. It
// survives process restarts as long as the mirror TTL has not lapsed.
type RedisFallback struct {
	cache  *redis.Cache
	preset string
}

func NewRedisFallback(cache *redis.Cache, preset string) *RedisFallback {
	return &RedisFallback{cache: cache, preset: preset}
}

func (f *RedisFallback) Name() string { return "redis_mirror" }

func (f *RedisFallback) Attempt(ctx context.Context) (*contracts.CacheEntry, bool) {
	var entry contracts.CacheEntry
	found, err := f.cache.Get(ctx, redis.ScanSnapshotKey(f.preset), &entry)
	if err != nil || !found {
		return nil, false
	}
	entry.Source = "redis"
	return &entry, true
}

// StoreFallback reads the last persisted snapshot from Postgres, the
// slowest but most durable tier.
type StoreFallback struct {
	repo contracts.DiscoveryRepository
	key  string
}

func NewStoreFallback(repo contracts.DiscoveryRepository, key string) *StoreFallback {
	return &StoreFallback{repo: repo, key: key}
}

func (f *StoreFallback) Name() string { return "postgres" }

func (f *StoreFallback) Attempt(ctx context.Context) (*contracts.CacheEntry, bool) {
	entry, err := f.repo.GetLatest(ctx, f.key)
	if err != nil || entry.IsEmpty() {
		return nil, false
	}
	entry.Source = "postgres"
	return entry, true
}

// RedisSink mirrors live snapshots into Redis for warm restarts
type RedisSink struct {
	cache  *redis.Cache
	preset string
	ttl    time.Duration
}

func NewRedisSink(cache *redis.Cache, preset string, ttl time.Duration) *RedisSink {
	return &RedisSink{cache: cache, preset: preset, ttl: ttl}
}

func (s *RedisSink) Name() string { return "redis_mirror" }

func (s *RedisSink) Store(ctx context.Context, entry *contracts.CacheEntry) error {
	return s.cache.Set(ctx, redis.ScanSnapshotKey(s.preset), entry, s.ttl)
}

// StoreSink persists live snapshots as the latest-discoveries view
type StoreSink struct {
	repo contracts.DiscoveryRepository
}

func NewStoreSink(repo contracts.DiscoveryRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Name() string { return "postgres" }

func (s *StoreSink) Store(ctx context.Context, entry *contracts.CacheEntry) error {
	return s.repo.ReplaceLatest(ctx, entry)
}
