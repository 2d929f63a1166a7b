package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
)

func TestCalculator_Calculate_VATExclusive(t *testing.T) {
	calc := pricing.NewCalculator(0.22)

	totals := calc.Calculate([]pricing.Line{
		{Quantity: 1, UnitPrice: 100},
	}, pricing.NoDiscount(), false)

	assert.InDelta(t, 100.0, totals.Subtotal, pricing.Tolerance)
	assert.InDelta(t, 22.0, totals.Tax, pricing.Tolerance)
	assert.InDelta(t, 122.0, totals.Total, pricing.Tolerance)
}

func TestCalculator_Calculate_VATInclusive(t *testing.T) {
	calc := pricing.NewCalculator(0.22)

	totals := calc.Calculate([]pricing.Line{
		{Quantity: 1, UnitPrice: 122},
	}, pricing.NoDiscount(), true)

	assert.InDelta(t, 100.0, totals.Subtotal, pricing.Tolerance)
	assert.InDelta(t, 22.0, totals.Tax, pricing.Tolerance)
	assert.InDelta(t, 122.0, totals.Total, pricing.Tolerance, "inclusive entry keeps the entered price as the total")
}

// Switching the tax mode on the same entered prices must keep the entered
// figure stable as the appropriate side: exclusive keeps the base, inclusive
// keeps the total.
func TestCalculator_Calculate_ModeRoundTrip(t *testing.T) {
	calc := pricing.NewCalculator(0.22)
	lines := []pricing.Line{{Quantity: 3, UnitPrice: 59.99}}

	exclusive := calc.Calculate(lines, pricing.NoDiscount(), false)
	inclusive := calc.Calculate(lines, pricing.NoDiscount(), true)

	entered := 3 * 59.99
	assert.InDelta(t, entered, exclusive.Subtotal, 1e-9)
	assert.InDelta(t, entered, inclusive.Total, 1e-9)
	assert.InDelta(t, inclusive.Subtotal*(1+0.22), inclusive.Total, 1e-9)
}

func TestCalculator_Calculate_LineDiscounts(t *testing.T) {
	calc := pricing.NewCalculator(0.22)

	totals := calc.Calculate([]pricing.Line{
		{Quantity: 2, UnitPrice: 50, Discount: pricing.Percentage(10)}, // 100 -> 90
		{Quantity: 1, UnitPrice: 30, Discount: pricing.Amount(5)},      // 30 -> 25
	}, pricing.NoDiscount(), false)

	assert.InDelta(t, 115.0, totals.ItemsTotal, pricing.Tolerance)
	assert.InDelta(t, 115.0*1.22, totals.Total, pricing.Tolerance)
}

// A percentage order discount comes off the pre-tax base and VAT is
// recomputed; a flat discount of the same nominal savings comes off the
// gross total and leaves base and tax untouched. The two totals differ.
func TestCalculator_Calculate_OrderDiscountAsymmetry(t *testing.T) {
	calc := pricing.NewCalculator(0.22)
	lines := []pricing.Line{{Quantity: 1, UnitPrice: 100}}

	pct := calc.Calculate(lines, pricing.Percentage(10), false)
	assert.InDelta(t, 10.0, pct.Discount, pricing.Tolerance)
	assert.InDelta(t, 90.0*0.22, pct.Tax, pricing.Tolerance)
	assert.InDelta(t, 109.80, pct.Total, pricing.Tolerance)

	flat := calc.Calculate(lines, pricing.Amount(10), false)
	assert.InDelta(t, 10.0, flat.Discount, pricing.Tolerance)
	assert.InDelta(t, 22.0, flat.Tax, pricing.Tolerance, "flat discount keeps the displayed tax")
	assert.InDelta(t, 100.0, flat.Subtotal, pricing.Tolerance, "flat discount keeps the displayed base")
	assert.InDelta(t, 112.0, flat.Total, pricing.Tolerance)

	assert.Greater(t, flat.Total, pct.Total)
}

func TestCalculator_Calculate_DiscountCappedAtBase(t *testing.T) {
	calc := pricing.NewCalculator(0.22)
	lines := []pricing.Line{{Quantity: 1, UnitPrice: 50}}

	flat := calc.Calculate(lines, pricing.Amount(1000), false)
	assert.InDelta(t, 61.0, flat.Discount, pricing.Tolerance, "flat discount is capped at the gross total")
	assert.InDelta(t, 0.0, flat.Total, pricing.Tolerance)

	pct := calc.Calculate(lines, pricing.Percentage(150), false)
	assert.InDelta(t, 50.0, pct.Discount, pricing.Tolerance)
	assert.InDelta(t, 0.0, pct.Total, pricing.Tolerance)
}

func TestCalculator_Calculate_EmptyCart(t *testing.T) {
	calc := pricing.NewCalculator(0.22)

	totals := calc.Calculate(nil, pricing.Percentage(10), true)

	assert.Zero(t, totals.Subtotal)
	assert.Zero(t, totals.Tax)
	assert.Zero(t, totals.Total)
}

func TestNewCalculator_InvalidRateFallsBack(t *testing.T) {
	assert.Equal(t, pricing.DefaultVATRate, pricing.NewCalculator(0).Rate())
	assert.Equal(t, pricing.DefaultVATRate, pricing.NewCalculator(-0.5).Rate())
	assert.Equal(t, pricing.DefaultVATRate, pricing.NewCalculator(1.5).Rate())
	assert.Equal(t, 0.10, pricing.NewCalculator(0.10).Rate())
}

func TestLine_Net_NegativeDiscountIgnored(t *testing.T) {
	l := pricing.Line{Quantity: 2, UnitPrice: 10, Discount: pricing.Amount(-5)}
	assert.InDelta(t, 20.0, l.Net(), 1e-9)
}

func TestAmountsEqual(t *testing.T) {
	assert.True(t, pricing.AmountsEqual(100.00, 100.009))
	assert.True(t, pricing.AmountsEqual(100.00, 99.991))
	assert.False(t, pricing.AmountsEqual(100.00, 100.02))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 109.8, pricing.Round2(109.80000000000001))
	assert.Equal(t, 0.1, pricing.Round2(0.1))
	assert.Equal(t, 2.68, pricing.Round2(2.675000001))
}
