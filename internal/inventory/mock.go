package inventory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is a test implementation of Provider backed by an in-memory
// stock map. Set Err to simulate an unreachable inventory collaborator.
type MockProvider struct {
	mu     sync.Mutex
	levels map[uuid.UUID]int

	// Err, when set, is returned by every lookup.
	Err error

	// Calls records the product-id sets requested, in order.
	Calls [][]uuid.UUID
}

// Compile-time check that MockProvider implements Provider.
var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with the given stock levels.
func NewMockProvider(levels map[uuid.UUID]int) *MockProvider {
	if levels == nil {
		levels = make(map[uuid.UUID]int)
	}
	return &MockProvider{levels: levels}
}

// SetStock updates the mocked stock level for a product.
func (m *MockProvider) SetStock(productID uuid.UUID, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[productID] = level
}

// EffectiveStock returns the mocked stock for one product.
func (m *MockProvider) EffectiveStock(ctx context.Context, productID uuid.UUID) (int, error) {
	levels, err := m.EffectiveStockBatch(ctx, []uuid.UUID{productID})
	if err != nil {
		return 0, err
	}
	return levels[productID], nil
}

// EffectiveStockBatch returns mocked stock for the given products.
func (m *MockProvider) EffectiveStockBatch(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, append([]uuid.UUID(nil), productIDs...))
	if m.Err != nil {
		return nil, m.Err
	}

	levels := make(map[uuid.UUID]int, len(productIDs))
	for _, id := range productIDs {
		if level, ok := m.levels[id]; ok {
			levels[id] = level
		}
	}
	return levels, nil
}
