package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipatpati/golden-phone-management-sub007/internal/inventory"
	"github.com/tipatpati/golden-phone-management-sub007/internal/stock"
)

func TestCache_Refresh_MergesLevels(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productA: 3, productB: 8})
	cache := stock.NewCache(provider, nil)

	require.NoError(t, cache.Refresh(context.Background(), productA))
	level, ok := cache.Get(productA)
	require.True(t, ok)
	assert.Equal(t, 3, level)

	_, ok = cache.Get(productB)
	assert.False(t, ok, "entries are lazy, only refreshed products exist")

	// A later refresh merges instead of replacing.
	require.NoError(t, cache.Refresh(context.Background(), productB))
	_, ok = cache.Get(productA)
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestCache_Refresh_FailureKeepsStaleValues(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 5})
	cache := stock.NewCache(provider, nil)

	require.NoError(t, cache.Refresh(context.Background(), productID))
	assert.False(t, cache.Stale())

	provider.Err = errors.New("connection refused")
	err := cache.Refresh(context.Background(), productID)
	require.Error(t, err)
	assert.True(t, cache.Stale())
	assert.Error(t, cache.LastError())

	level, ok := cache.Get(productID)
	require.True(t, ok)
	assert.Equal(t, 5, level, "stale value survives the failed refresh")

	// Recovery clears the warning.
	provider.Err = nil
	provider.SetStock(productID, 2)
	require.NoError(t, cache.Refresh(context.Background(), productID))
	assert.False(t, cache.Stale())
	level, _ = cache.Get(productID)
	assert.Equal(t, 2, level)
}

func TestCache_Refresh_NoProductsIsNoOp(t *testing.T) {
	provider := inventory.NewMockProvider(nil)
	cache := stock.NewCache(provider, nil)

	require.NoError(t, cache.Refresh(context.Background()))
	assert.Empty(t, provider.Calls)
}
