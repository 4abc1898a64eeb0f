package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/tabstash/tabstash/internal/host"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/infrastructure/monitoring"
)

// persistentMeta is the durable record of a cache's key set. Keys are held
// in insertion order; the persisted set is evicted oldest-first by count,
// independent of the in-memory LRU order.
type persistentMeta struct {
	Keys     []string `json:"keys"`
	Capacity int      `json:"capacity"`
}

// PersistentCache wraps a BoundedCache and mirrors every mutation to host
// storage. It hydrates itself lazily from storage on first access, so a
// restarted process sees the previous process's entries.
type PersistentCache[V any] struct {
	storage   host.Storage
	namespace string
	logger    *logging.Logger
	metrics   *monitoring.Metrics

	mu       sync.Mutex
	cache    *BoundedCache[string, V]
	keys     []string // insertion order, mirrors the persisted meta record
	hydrated bool
}

// NewPersistent creates a persistent cache. Items are stored one per key
// under "<namespace>:<key>" with metadata under "<namespace>:meta".
func NewPersistent[V any](storage host.Storage, namespace string, capacity int, logger *logging.Logger) *PersistentCache[V] {
	return &PersistentCache[V]{
		storage:   storage,
		namespace: namespace,
		logger:    logger,
		cache:     NewBounded[string, V](capacity),
	}
}

// WithMetrics attaches a metrics collector.
func (c *PersistentCache[V]) WithMetrics(m *monitoring.Metrics) *PersistentCache[V] {
	c.metrics = m
	return c
}

// Get returns the cached value for key. A value absent from memory but
// still present in storage (evicted by the in-memory LRU, not by count) is
// reloaded transparently.
func (c *PersistentCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if err := c.hydrateLocked(ctx); err != nil {
		return zero, false, err
	}

	if value, ok := c.cache.Get(key); ok {
		c.recordHit()
		return value, true, nil
	}

	value, found, err := c.loadItem(ctx, key)
	if err != nil || !found {
		c.recordMiss()
		return zero, false, err
	}
	c.cache.Put(key, value)
	c.recordHit()
	return value, true, nil
}

// Put stores key in memory and in durable storage, evicting the oldest
// persisted key when the declared capacity is exceeded.
func (c *PersistentCache[V]) Put(ctx context.Context, key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.hydrateLocked(ctx); err != nil {
		return err
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize cache item %s: %w", key, err)
	}
	if err := c.storage.Set(ctx, c.itemKey(key), data); err != nil {
		return fmt.Errorf("failed to persist cache item %s: %w", key, err)
	}

	c.cache.Put(key, value)

	if !contains(c.keys, key) {
		c.keys = append(c.keys, key)
		if capacity := c.cache.Capacity(); capacity > 0 && len(c.keys) > capacity {
			oldest := c.keys[0]
			c.keys = c.keys[1:]
			c.cache.Delete(oldest)
			if err := c.storage.Remove(ctx, c.itemKey(oldest)); err != nil {
				c.logger.Warn("Failed to remove evicted cache item",
					zap.String("namespace", c.namespace),
					zap.String("key", oldest),
					zap.Error(err),
				)
			}
		}
	}

	return c.writeMetaLocked(ctx)
}

// Delete removes key from memory and storage.
func (c *PersistentCache[V]) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.hydrateLocked(ctx); err != nil {
		return err
	}

	c.cache.Delete(key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	if err := c.storage.Remove(ctx, c.itemKey(key)); err != nil {
		return fmt.Errorf("failed to remove cache item %s: %w", key, err)
	}
	return c.writeMetaLocked(ctx)
}

// Len returns the number of persisted keys, hydrating first.
func (c *PersistentCache[V]) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.hydrateLocked(ctx); err != nil {
		return 0, err
	}
	return len(c.keys), nil
}

func (c *PersistentCache[V]) hydrateLocked(ctx context.Context) error {
	if c.hydrated {
		return nil
	}

	data, found, err := c.storage.Get(ctx, c.metaKey())
	if err != nil {
		return fmt.Errorf("failed to read cache metadata: %w", err)
	}
	if found {
		var meta persistentMeta
		if err := sonic.Unmarshal(data, &meta); err != nil {
			// Malformed metadata: start fresh rather than fail every call.
			c.logger.Warn("Discarding malformed cache metadata",
				zap.String("namespace", c.namespace),
				zap.Error(err),
			)
		} else {
			for _, key := range meta.Keys {
				value, ok, err := c.loadItem(ctx, key)
				if err != nil || !ok {
					continue
				}
				c.keys = append(c.keys, key)
				c.cache.Put(key, value)
			}
		}
	}

	c.hydrated = true
	return nil
}

func (c *PersistentCache[V]) loadItem(ctx context.Context, key string) (V, bool, error) {
	var zero V
	data, found, err := c.storage.Get(ctx, c.itemKey(key))
	if err != nil {
		return zero, false, fmt.Errorf("failed to read cache item %s: %w", key, err)
	}
	if !found {
		return zero, false, nil
	}
	var value V
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to decode cache item %s: %w", key, err)
	}
	return value, true, nil
}

func (c *PersistentCache[V]) writeMetaLocked(ctx context.Context) error {
	meta := persistentMeta{Keys: c.keys, Capacity: c.cache.Capacity()}
	data, err := sonic.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize cache metadata: %w", err)
	}
	if err := c.storage.Set(ctx, c.metaKey(), data); err != nil {
		return fmt.Errorf("failed to persist cache metadata: %w", err)
	}
	return nil
}

func (c *PersistentCache[V]) itemKey(key string) string {
	return c.namespace + ":" + key
}

func (c *PersistentCache[V]) metaKey() string {
	return c.namespace + ":meta"
}

func (c *PersistentCache[V]) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(c.namespace)
	}
}

func (c *PersistentCache[V]) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(c.namespace)
	}
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
