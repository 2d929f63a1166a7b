package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound   = &Error{Code: ENOTFOUND, Message: "Sale not found"}
	ErrSaleEmpty      = &Error{Code: EINVALID, Message: "Sale has no items"}
	ErrUnitSold       = &Error{Code: ECONFLICT, Message: "Unit has already been sold"}
	ErrStockExceeded  = &Error{Code: ECONFLICT, Message: "Requested quantity exceeds available stock"}
	ErrSplitMismatch  = &Error{Code: EINVALID, Message: "Hybrid payment amounts do not sum to the sale total"}
	ErrInvalidPayment = &Error{Code: EINVALID, Message: "Invalid payment method"}
)

// Payment methods accepted at the till. PaymentHybrid settles one sale
// across cash, card and bank transfer sub-amounts.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentHybrid       PaymentMethod = "hybrid"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentHybrid:
		return true
	}
	return false
}

// PaymentSplit carries the sub-amounts of a hybrid payment. The sum must
// match the sale total within pricing.Tolerance.
type PaymentSplit struct {
	CashAmount         float64
	CardAmount         float64
	BankTransferAmount float64
}

// Total returns the sum of the split sub-amounts.
func (p PaymentSplit) Total() float64 {
	return p.CashAmount + p.CardAmount + p.BankTransferAmount
}

// SaleItem is one committed sale line: a specific serialized unit
// (ProductUnitID/SerialNumber set, quantity 1) or an aggregated quantity of
// a non-serialized product.
type SaleItem struct {
	ID            uuid.UUID
	SaleID        uuid.UUID
	ProductID     uuid.UUID
	ProductUnitID *uuid.UUID
	SerialNumber  *string
	Quantity      int
	UnitPrice     float64
	// DiscountType/DiscountValue record the per-line discount applied at
	// sale time ("percentage", "amount" or empty).
	DiscountType  string
	DiscountValue float64
}

// Sale is a committed sale as persisted.
type Sale struct {
	ID            uuid.UUID
	Number        string
	ClientID      *uuid.UUID
	PaymentMethod PaymentMethod
	Split         PaymentSplit
	DiscountType  string
	DiscountValue float64
	VATIncluded   bool
	Subtotal      float64
	Discount      float64
	Tax           float64
	Total         float64
	Items         []SaleItem
	CreatedAt     time.Time
}

// SalePayload is the normalized order payload the cart engine hands to the
// persistence collaborator. The engine's client-side verdict is advisory;
// Create revalidates authoritatively before committing.
type SalePayload struct {
	ClientID      *uuid.UUID
	PaymentMethod PaymentMethod
	Split         PaymentSplit
	DiscountType  string
	DiscountValue float64
	VATIncluded   bool
	Subtotal      float64
	Discount      float64
	Tax           float64
	Total         float64
	Items         []SaleItem
}

// SaleService owns sale persistence and is the authoritative validator at
// commit time.
type SaleService interface {
	// Create commits a sale. It re-verifies stock and unit availability
	// inside a transaction and rejects with ErrStockExceeded or
	// ErrUnitSold when the cart's view was stale.
	Create(ctx context.Context, payload SalePayload) (*Sale, error)

	// Get retrieves a sale with its items.
	Get(ctx context.Context, id uuid.UUID) (*Sale, error)

	// List returns recent sales, newest first.
	List(ctx context.Context, limit int) ([]Sale, error)
}
