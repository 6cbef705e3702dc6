package timing

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/redis/go-redis/v9"
)

const DefaultMaxEntries = 1024

// Store keeps Records keyed by request URI.
type Store interface {
	Set(ctx context.Context, uri string, f Field, v int64) error
	Get(ctx context.Context, uri string) (Record, bool, error)
}

// MemoryStore is a Store bounded to a fixed number of URIs; the least
// recently used record is evicted first.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{cache: lru.New(maxEntries)}
}

func (s *MemoryStore) Set(_ context.Context, uri string, f Field, v int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(uri)
	if !ok {
		rec = &Record{URI: uri}
		s.cache.Add(uri, rec)
	}
	rec.set(f, v)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, uri string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(uri)
	if !ok {
		return Record{}, false, nil
	}
	return *rec, true, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func (s *MemoryStore) lookup(uri string) (*Record, bool) {
	v, ok := s.cache.Get(uri)
	if !ok {
		return nil, false
	}
	return v.(*Record), true
}

// RedisStore keeps one hash per URI. Every write refreshes the key TTL, which
// bounds how long an abandoned record survives.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(uri string) string {
	return s.prefix + uri
}

func (s *RedisStore) Set(ctx context.Context, uri string, f Field, v int64) error {
	key := s.key(uri)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, string(f), v)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis timing set %s: %w", f, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, uri string) (Record, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.key(uri)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("redis timing get: %w", err)
	}
	if len(m) == 0 {
		return Record{}, false, nil
	}
	rec := Record{URI: uri}
	for _, f := range fields {
		raw, ok := m[string(f)]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Record{}, false, fmt.Errorf("redis timing field %s: %w", f, err)
		}
		rec.set(f, n)
	}
	return rec, true, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
