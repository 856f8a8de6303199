// Package cache provides the TTL key/value store behind the retrieval
// orchestrator: Redis when reachable, transparently falling back to an
// in-process map when it is not. The fallback is per-operation; a Redis
// blip degrades a single lookup, never a request.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// minTTL keeps a rounded-down TTL from expiring an entry instantly.
const minTTL = time.Second

// backend is one storage engine. get reports (value, found); set stores
// with a TTL.
type backend interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store is the schedule-aware cache. Entries are immutable once written and
// are never served past their TTL in either backing mode.
type Store struct {
	primary  backend // nil when running without Redis
	fallback *memoryStore
	logger   *slog.Logger
}

// New creates a Store backed by the given Redis client. A nil client means
// in-process caching only (single-instance deployments and tests).
func New(client *redis.Client, logger *slog.Logger, clock clockwork.Clock) *Store {
	s := &Store{
		fallback: newMemoryStore(clock),
		logger:   logger,
	}
	if client != nil {
		s.primary = &redisStore{client: client}
	}
	return s
}

// Get returns the value stored under key, or found=false on a miss. Backend
// errors degrade to the in-process fallback and are logged, not surfaced.
func (s *Store) Get(ctx context.Context, key Key) ([]byte, bool) {
	k := key.String()

	if s.primary != nil {
		value, found, err := s.primary.get(ctx, k)
		if err == nil {
			return value, found
		}
		s.logger.Warn("cache backend get failed, using in-process fallback", "key", k, "error", err)
	}

	value, found, _ := s.fallback.get(ctx, k)
	return value, found
}

// Set stores value under key for ttl. A write that fails on the primary
// backend lands in the in-process fallback instead.
func (s *Store) Set(ctx context.Context, key Key, value []byte, ttl time.Duration) {
	if ttl < minTTL {
		ttl = minTTL
	}
	k := key.String()

	if s.primary != nil {
		err := s.primary.set(ctx, k, value, ttl)
		if err == nil {
			return
		}
		s.logger.Warn("cache backend set failed, using in-process fallback", "key", k, "error", err)
	}

	s.fallback.set(ctx, k, value, ttl) //nolint:errcheck // memory backend cannot fail
}

// memoryStore is the in-process fallback: a plain map with lazy expiry on
// read.
type memoryStore struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func newMemoryStore(clock clockwork.Clock) *memoryStore {
	return &memoryStore{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (m *memoryStore) get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.clock.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *memoryStore) set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

// redisStore adapts a go-redis client to the backend interface.
type redisStore struct {
	client *redis.Client
}

func (r *redisStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == redis.Nil:
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return value, true, nil
}

func (r *redisStore) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}
