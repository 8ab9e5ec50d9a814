package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"endurancy-platform/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endurancy_cache_hits_total",
		Help: "Read-through cache hits by key prefix.",
	}, []string{"prefix"})
	cacheMiss = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endurancy_cache_miss_total",
		Help: "Read-through cache misses by key prefix.",
	}, []string{"prefix"})
)

var Module = fx.Module("cache",
	fx.Provide(fx.Annotate(NewRedisStore, fx.As(new(Store)))),
)

// Store keeps raw values with a TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[key]
	if !ok || (!it.expiresAt.IsZero() && time.Now().After(it.expiresAt)) {
		return nil, false, nil
	}
	return it.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}
	s.items[key] = it
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

// Loader is a JSON read-through cache. Concurrent misses on the same key
// share one load. Store failures are logged and fall back to load.
type Loader struct {
	store  Store
	prefix string
	group  singleflight.Group
}

func NewLoader(store Store, prefix string) *Loader {
	return &Loader{store: store, prefix: prefix}
}

func Load[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var out T
	b, ok, err := l.store.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		if err := json.Unmarshal(b, &out); err == nil {
			cacheHits.WithLabelValues(l.prefix).Inc()
			return out, nil
		}
	}
	cacheMiss.WithLabelValues(l.prefix).Inc()

	v, err, _ := l.group.Do(key, func() (any, error) {
		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(fresh); err == nil {
			if err := l.store.Set(ctx, key, b, ttl); err != nil {
				logger.FromContext(ctx).Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return fresh, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

// Invalidate drops keys. Failures are logged, the TTL bounds staleness.
func (l *Loader) Invalidate(ctx context.Context, keys ...string) {
	if err := l.store.Delete(ctx, keys...); err != nil {
		logger.FromContext(ctx).Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
