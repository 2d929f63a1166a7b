// Package pricing computes sale totals: per-line discounts, order-level
// discounts and VAT under tax-inclusive or tax-exclusive entry of unit
// prices. All functions are pure; the cart engine recomputes totals on every
// mutation.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultVATRate is the Italian standard IVA rate applied to every sale.
// The rate is sale-wide; there is no per-product or per-category rate.
const DefaultVATRate = 0.22

// Tolerance is the absolute tolerance for monetary equality checks.
// Arithmetic is float64 with no mid-calculation rounding; two amounts within
// one cent are considered equal.
const Tolerance = 0.01

// DiscountType tags a Discount value.
type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

// Discount is a tagged discount value: none, a percentage of the base, or a
// flat currency amount. The zero value is no discount.
type Discount struct {
	Type  DiscountType
	Value float64
}

// NoDiscount returns the empty discount.
func NoDiscount() Discount { return Discount{} }

// Percentage returns a percentage discount (value in percent, e.g. 10 for 10%).
func Percentage(value float64) Discount {
	return Discount{Type: DiscountPercentage, Value: value}
}

// Amount returns a flat currency discount.
func Amount(value float64) Discount {
	return Discount{Type: DiscountAmount, Value: value}
}

// deduction returns the amount deducted from base, capped at base and
// floored at zero.
func (d Discount) deduction(base float64) float64 {
	if d.Value <= 0 {
		return 0
	}
	var cut float64
	switch d.Type {
	case DiscountPercentage:
		cut = base * d.Value / 100
	case DiscountAmount:
		cut = d.Value
	default:
		return 0
	}
	return math.Min(cut, base)
}

// Line is the pricing view of one cart line.
type Line struct {
	Quantity  int
	UnitPrice float64
	Discount  Discount
}

// Net returns the line total after the per-line discount.
func (l Line) Net() float64 {
	subtotal := float64(l.Quantity) * l.UnitPrice
	return subtotal - l.Discount.deduction(subtotal)
}

// Totals is the computed monetary breakdown of a cart.
type Totals struct {
	// ItemsTotal is the sum of line nets, in the entered price convention
	// (VAT-inclusive or exclusive depending on the cart setting).
	ItemsTotal float64

	// Subtotal is the pre-tax base before the order-level discount.
	Subtotal float64

	// Discount is the order-level discount amount actually deducted.
	Discount float64

	// Tax is the VAT amount. Under a percentage order discount it is
	// recomputed on the discounted base; under a flat discount it stays
	// the pre-discount figure.
	Tax float64

	// TotalBeforeDiscount is the tax-included total before the order
	// discount. The flat order discount is bounded by this value.
	TotalBeforeDiscount float64

	// Total is the grand total owed.
	Total float64
}

// Calculator computes cart totals at a fixed VAT rate.
type Calculator struct {
	rate float64
}

// NewCalculator returns a Calculator for the given VAT rate (e.g. 0.22).
// Rates outside (0, 1) fall back to DefaultVATRate.
func NewCalculator(rate float64) Calculator {
	if rate <= 0 || rate >= 1 {
		rate = DefaultVATRate
	}
	return Calculator{rate: rate}
}

// Rate returns the configured VAT rate.
func (c Calculator) Rate() float64 { return c.rate }

// Calculate computes the cart totals. vatIncluded selects whether entered
// unit prices already embed VAT (extract) or not (add on top).
//
// The order-level discount applies asymmetrically by type: a percentage
// discount applies to the pre-tax base and VAT is recomputed on the
// discounted base; a flat discount applies to the tax-included total and the
// displayed base/tax keep their pre-discount values. The order of operations
// is load-bearing; do not reorder.
func (c Calculator) Calculate(lines []Line, orderDiscount Discount, vatIncluded bool) Totals {
	var itemsTotal float64
	for _, l := range lines {
		itemsTotal += l.Net()
	}

	var base, tax, totalBefore float64
	if vatIncluded {
		base = itemsTotal / (1 + c.rate)
		tax = base * c.rate
		totalBefore = itemsTotal
	} else {
		base = itemsTotal
		tax = base * c.rate
		totalBefore = base + tax
	}

	t := Totals{
		ItemsTotal:          itemsTotal,
		Subtotal:            base,
		Tax:                 tax,
		TotalBeforeDiscount: totalBefore,
	}

	switch orderDiscount.Type {
	case DiscountPercentage:
		t.Discount = orderDiscount.deduction(base)
		discounted := base - t.Discount
		t.Tax = discounted * c.rate
		t.Total = discounted + t.Tax
	case DiscountAmount:
		t.Discount = orderDiscount.deduction(totalBefore)
		t.Total = totalBefore - t.Discount
	default:
		t.Total = totalBefore
	}

	return t
}

// AmountsEqual reports whether two monetary amounts are equal within
// Tolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}

// Round2 rounds a monetary amount to two decimals for persistence and
// display. Engine-internal arithmetic stays unrounded.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
