package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// MockBus is an in-process Subscriber/Publisher for tests. Publish delivers
// synchronously to every handler subscribed to the event's product.
type MockBus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[uuid.UUID]map[int]Handler
}

// Compile-time checks.
var (
	_ Subscriber = (*MockBus)(nil)
	_ Publisher  = (*MockBus)(nil)
)

// NewMockBus creates an empty mock bus.
func NewMockBus() *MockBus {
	return &MockBus{handlers: make(map[uuid.UUID]map[int]Handler)}
}

// Subscribe registers a handler for the product.
func (b *MockBus) Subscribe(productID uuid.UUID, fn Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[productID] == nil {
		b.handlers[productID] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[productID][id] = fn

	return &mockSubscription{bus: b, productID: productID, id: id}, nil
}

// Publish delivers the event synchronously to subscribed handlers.
func (b *MockBus) Publish(event Event) error {
	b.mu.Lock()
	fns := make([]Handler, 0, len(b.handlers[event.ProductID]))
	for _, fn := range b.handlers[event.ProductID] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
	return nil
}

// SubscriberCount returns the number of live handlers for a product.
func (b *MockBus) SubscriberCount(productID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[productID])
}

type mockSubscription struct {
	bus       *MockBus
	productID uuid.UUID
	id        int
}

func (s *mockSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.handlers[s.productID], s.id)
	return nil
}
