// Package inventory exposes effective stock lookups for the sale flow.
// Effective stock is what can actually be sold right now: the count of
// available units for serialized products, the on-hand counter otherwise.
package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Provider fetches current effective stock. Implementations must be
// idempotent and safe to call redundantly; the cart engine calls them on
// demand and on every realtime change notification.
type Provider interface {
	// EffectiveStock returns the effective stock for one product.
	EffectiveStock(ctx context.Context, productID uuid.UUID) (int, error)

	// EffectiveStockBatch returns effective stock for the given products.
	// Unknown product ids are absent from the result rather than an error.
	EffectiveStockBatch(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
}
