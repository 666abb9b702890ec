// Package snapshotcache memoizes the most recent serialized snapshot of each
// entity so undo captures do not have to re-serialize unchanged entities.
//
// The cache is owned by an editing session; it is not a process-wide global.
// Retrieve never serializes. UpdateCache is the only path that writes data and
// it always reads the live entity.
package snapshotcache

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
)

var (
	ErrEntityNotFound = errors.New("no live entity for identity")
	ErrEmptySnapshot  = errors.New("serializer produced an empty snapshot")
)

// EntityFinder looks up live entities.
type EntityFinder interface {
	FindByIdentity(models.EntityID) *models.Entity
}

// Encoder serializes a live entity.
type Encoder interface {
	Serialize(*models.Entity) ([]byte, error)
}

type entry struct {
	data   []byte
	digest uint64
}

type Cache struct {
	mu      sync.RWMutex
	entries map[models.EntityID]entry
	encoder Encoder
	finder  EntityFinder
	metrics *Metrics
	logger  log.Log
}

// New creates an empty cache. metrics and logger may be nil.
func New(encoder Encoder, finder EntityFinder, metrics *Metrics, logger log.Log) *Cache {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Cache{
		entries: make(map[models.EntityID]entry),
		encoder: encoder,
		finder:  finder,
		metrics: metrics,
		logger:  logger,
	}
}

// Retrieve returns a copy of the cached snapshot, or nil when absent.
func (c *Cache) Retrieve(id models.EntityID) []byte {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		c.metrics.misses.Inc()
		return nil
	}
	c.metrics.hits.Inc()
	return bytes.Clone(e.data)
}

// UpdateCache serializes the live entity registered under id and replaces
// any previous entry. If no live entity exists the entry is purged.
func (c *Cache) UpdateCache(id models.EntityID) error {
	live := c.finder.FindByIdentity(id)
	if live == nil {
		c.PurgeCache(id)
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	data, err := c.encoder.Serialize(live)
	if err != nil {
		return fmt.Errorf("snapshot entity %d: %w", id, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: entity %d", ErrEmptySnapshot, id)
	}

	digest := xxhash.Sum64(data)
	c.mu.Lock()
	c.entries[id] = entry{data: data, digest: digest}
	size := len(c.entries)
	c.mu.Unlock()

	c.metrics.updates.Inc()
	c.metrics.entries.Set(float64(size))
	c.metrics.bytes.Observe(float64(len(data)))
	c.logger.Debug("snapshot cached",
		log.EntityID(uint64(id)),
		log.Digest(digest),
		log.Int("bytes", len(data)),
	)
	return nil
}

// PurgeCache drops the entry for id.
func (c *Cache) PurgeCache(id models.EntityID) {
	c.mu.Lock()
	_, existed := c.entries[id]
	delete(c.entries, id)
	size := len(c.entries)
	c.mu.Unlock()
	if !existed {
		return
	}
	c.metrics.purges.Inc()
	c.metrics.entries.Set(float64(size))
	c.logger.Debug("snapshot purged", log.EntityID(uint64(id)))
}

// Digest returns the xxhash64 of the cached snapshot.
func (c *Cache) Digest(id models.EntityID) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.digest, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry, used when the editing session ends.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[models.EntityID]entry)
	c.mu.Unlock()
	c.metrics.entries.Set(0)
}
