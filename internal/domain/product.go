package domain

import (
	"context"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrUnitNotFound    = &Error{Code: ENOTFOUND, Message: "Product unit not found"}
	ErrUnitNotForSale  = &Error{Code: ECONFLICT, Message: "Product unit is not available for sale"}
)

// Unit availability states. A unit leaves "available" exactly once, when a
// sale containing it commits.
const (
	UnitAvailable = "available"
	UnitSold      = "sold"
	UnitDamaged   = "damaged"
)

// Product is a catalog entry. Serialized products (HasSerial) are tracked by
// individual ProductUnit rows; non-serialized products carry an aggregate
// stock counter on the product row itself.
type Product struct {
	ID        uuid.UUID
	Brand     string
	Model     string
	Year      int
	Price     float64
	// MinPrice/MaxPrice bound operator price overrides at the till. The
	// range is advisory: the UI warns outside it but the engine does not
	// reject.
	MinPrice  float64
	MaxPrice  float64
	HasSerial bool
	// Stock is the on-hand quantity for non-serialized products. For
	// serialized products the effective stock is the count of available
	// units and this field is zero.
	Stock int
}

// ProductUnit is one physical serialized unit (phone, tablet) identified by
// its serial number or IMEI.
type ProductUnit struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	SerialNumber string
	Barcode      string
	Color        string
	StorageGB    int
	// Price overrides the product price for this specific unit when > 0.
	Price  float64
	Status string
}

// ProductService provides catalog lookups for the sale flow.
type ProductService interface {
	// GetProduct retrieves a product by id.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// ListProducts returns catalog products matching an optional search
	// term (brand, model or serial prefix).
	ListProducts(ctx context.Context, search string) ([]Product, error)

	// GetUnitBySerial resolves a serialized unit by its serial number or
	// barcode, for scanning at the till.
	GetUnitBySerial(ctx context.Context, serial string) (*ProductUnit, *Product, error)

	// ListAvailableUnits returns the available units for a serialized
	// product.
	ListAvailableUnits(ctx context.Context, productID uuid.UUID) ([]ProductUnit, error)
}
