// Package cache provides a read-through cache decorator over a pluggable
// Store (Redis or in-process). Every store failure degrades to a miss: the
// wrapped function still runs and the caller never sees a cache error.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// opTimeout bounds every store call so a stalled backend costs a read at
// most this much before it is treated as a miss.
const opTimeout = 500 * time.Millisecond

// Cache is safe for concurrent use. A nil *Cache is valid and never caches.
type Cache struct {
	store  Store
	logger *zap.Logger
	group  singleflight.Group
}

// New wraps store.
func New(store Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Kind reports the backend name, or "disabled" for a nil cache.
func (c *Cache) Kind() string {
	if c == nil {
		return "disabled"
	}
	return c.store.Kind()
}

// Close releases the store.
func (c *Cache) Close() {
	if c != nil {
		c.store.Close()
	}
}

// Key builds "<prefix>:<hash>" where hash is derived from the canonical JSON
// of params. Equal params always give the same key. prefix should carry the
// scope used for invalidation, e.g. "measurements:42:range". Keys without
// params end in ":_" so they still fall under prefix invalidation.
func Key(prefix string, params any) string {
	if params == nil {
		return prefix + ":_"
	}
	raw, err := sonic.ConfigStd.Marshal(params)
	if err != nil {
		// Unencodable params cannot be hashed reliably; fall back to a key
		// that is unique per prefix so the entry is simply shared.
		return prefix + ":_"
	}
	sum := sha256.Sum256(raw)
	return prefix + ":" + hex.EncodeToString(sum[:8])
}

// Remember returns the cached value for key, or calls fn, stores its result
// for ttl and returns it. Concurrent misses for the same key share one call
// to fn. Errors from fn are returned and never cached.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		return fn(ctx)
	}

	if raw, ok := c.get(ctx, key); ok {
		var v T
		if err := sonic.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Invalidate drops exact keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// InvalidatePrefix drops every key under each prefix. A trailing ":" is
// added when missing so "servers:4" does not also match "servers:42".
func (c *Cache) InvalidatePrefix(ctx context.Context, prefixes ...string) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout*time.Duration(len(prefixes)+1))
	defer cancel()
	for _, p := range prefixes {
		if !strings.HasSuffix(p, ":") {
			p += ":"
		}
		if err := c.store.DeletePrefix(ctx, p); err != nil {
			c.logger.Warn("cache prefix delete failed", zap.String("prefix", p), zap.Error(err))
		}
	}
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return raw, found
}

func (c *Cache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
