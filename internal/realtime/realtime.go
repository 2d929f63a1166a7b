// Package realtime carries inventory change notifications between the
// persistence layer and cart engines. Events are idempotent triggers for a
// stock refresh, never direct state mutations.
package realtime

import "github.com/google/uuid"

// Event kinds published on stock-affecting writes.
const (
	EventProductUpdated = "product.updated"
	EventUnitUpdated    = "unit.updated"
)

// Event is one inventory change notification.
type Event struct {
	Kind      string     `json:"kind"`
	ProductID uuid.UUID  `json:"product_id"`
	UnitID    *uuid.UUID `json:"unit_id,omitempty"`
}

// Handler consumes events for a subscribed product. Handlers must not block;
// slow work belongs in a goroutine.
type Handler func(Event)

// Subscription is a live per-product subscription.
type Subscription interface {
	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe() error
}

// Subscriber delivers change events for individual products. The cart engine
// subscribes for exactly the product-id set currently in the cart and
// adjusts subscriptions whenever that set changes.
type Subscriber interface {
	Subscribe(productID uuid.UUID, fn Handler) (Subscription, error)
}

// Publisher emits change events. The sale service publishes after commits
// that change stock.
type Publisher interface {
	Publish(event Event) error
}
