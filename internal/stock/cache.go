// Package stock maintains the last-known effective stock per product, used
// by the cart engine for advisory validation. The cache is never a source of
// truth; commit-time validation against the database is authoritative.
package stock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tipatpati/golden-phone-management-sub007/internal/inventory"
)

// Cache holds last-known effective stock keyed by product id. Entries are
// created lazily on first refresh and merged last-write-wins; overlapping
// refreshes for the same product carry no ordering guarantee.
type Cache struct {
	provider inventory.Provider
	logger   *slog.Logger

	mu      sync.RWMutex
	levels  map[uuid.UUID]int
	lastErr error
}

// NewCache creates a stock cache backed by the given inventory provider.
func NewCache(provider inventory.Provider, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		provider: provider,
		logger:   logger,
		levels:   make(map[uuid.UUID]int),
	}
}

// Refresh fetches current effective stock for the given products and merges
// the results. Failure is non-fatal: cached values remain stale but usable,
// the error is recorded for display and returned as a warning.
func (c *Cache) Refresh(ctx context.Context, productIDs ...uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	levels, err := c.provider.EffectiveStockBatch(ctx, productIDs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.lastErr = err
		c.logger.Warn("stock refresh failed, keeping stale values",
			"products", len(productIDs), "error", err)
		return err
	}

	c.lastErr = nil
	for id, level := range levels {
		c.levels[id] = level
	}
	return nil
}

// Get returns the cached effective stock for a product and whether an entry
// exists.
func (c *Cache) Get(productID uuid.UUID) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	level, ok := c.levels[productID]
	return level, ok
}

// Stale reports whether the most recent refresh failed.
func (c *Cache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr != nil
}

// LastError returns the error from the most recent refresh, or nil.
func (c *Cache) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.levels)
}
