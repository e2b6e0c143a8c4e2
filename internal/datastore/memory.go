package datastore

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory. Values never expire unless a
// TTL is given; it is used when no database is configured and in tests.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-memory store. ttl <= 0 keeps values forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl * 2
	}
	return &MemoryStore{cache: cache.New(expiration, cleanup)}
}

// Kind returns "memory".
func (m *MemoryStore) Kind() string { return "memory" }

// Open is a no-op.
func (m *MemoryStore) Open() error { return nil }

// Close drops all values.
func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	return slices.Clone(b), true, nil
}

// Set stores a copy of value under key.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.cache.Set(key, slices.Clone(value), cache.DefaultExpiration)
	return nil
}
