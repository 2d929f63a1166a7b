package cart

import (
	"github.com/google/uuid"

	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
)

// Line is one cart entry: a specific serialized unit (quantity locked to 1)
// or an aggregated quantity of a non-serialized product.
type Line struct {
	ProductID     uuid.UUID
	ProductUnitID *uuid.UUID
	SerialNumber  *string
	Quantity      int
	UnitPrice     float64

	// MinPrice/MaxPrice bound operator price overrides. Advisory only:
	// nothing in the engine rejects a price outside the range.
	MinPrice float64
	MaxPrice float64

	Discount pricing.Discount

	// Stock is the available quantity snapshotted when the line was
	// added. Immutable afterwards; live availability lives in the stock
	// cache, never here.
	Stock int

	HasSerial bool

	// Display fields carried through to receipts.
	Brand string
	Model string
}

// IdentityKey distinguishes serialized lines for the same product. It is the
// serial number when present, else the unit id, and empty for bulk lines.
func (l Line) IdentityKey() string {
	if !l.HasSerial {
		return ""
	}
	if l.SerialNumber != nil && *l.SerialNumber != "" {
		return *l.SerialNumber
	}
	if l.ProductUnitID != nil {
		return l.ProductUnitID.String()
	}
	return ""
}

// sameLine reports whether two lines are the same cart line: same product
// and either both non-serialized, or both serialized with the same
// serial/unit identity.
func sameLine(a, b Line) bool {
	if a.ProductID != b.ProductID || a.HasSerial != b.HasSerial {
		return false
	}
	if !a.HasSerial {
		return true
	}
	return a.IdentityKey() == b.IdentityKey()
}

// Subtotal returns quantity * unit price before any discount.
func (l Line) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// Net returns the line total after the per-line discount.
func (l Line) Net() float64 {
	return l.pricingLine().Net()
}

func (l Line) pricingLine() pricing.Line {
	return pricing.Line{
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		Discount:  l.Discount,
	}
}

// LineUpdate is a partial update applied to an existing line. Nil fields are
// left unchanged. Quantity updates on serialized lines are forced back to 1.
type LineUpdate struct {
	Quantity  *int
	UnitPrice *float64
	Discount  *pricing.Discount
}
