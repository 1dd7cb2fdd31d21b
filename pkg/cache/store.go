package cache

import (
	"context"
	"strings"
	"time"
)

// Store is the raw key/value backend behind a Cache. Implementations return
// errors freely; Cache decides that none of them are fatal.
type Store interface {
	// Get reports found=false on a miss without an error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// Kind names the backend for health output ("redis", "memory").
	Kind() string
	Close()
}

type memoryStore struct {
	entries *TTLCache[string, []byte]
}

// NewMemoryStore returns an in-process Store. Used when no Redis address is
// configured and in tests.
func NewMemoryStore() Store {
	return &memoryStore{entries: NewTTLCache[string, []byte](time.Minute)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.entries.Get(key)
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.entries.Set(key, value, ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.entries.Delete(k)
	}
	return nil
}

func (s *memoryStore) DeletePrefix(_ context.Context, prefix string) error {
	s.entries.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
	return nil
}

func (s *memoryStore) Kind() string { return "memory" }

func (s *memoryStore) Close() { s.entries.Close() }
