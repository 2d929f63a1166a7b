package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipatpati/golden-phone-management-sub007/internal/cart"
	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
	"github.com/tipatpati/golden-phone-management-sub007/internal/inventory"
	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
	"github.com/tipatpati/golden-phone-management-sub007/internal/realtime"
)

func newTestEngine(provider inventory.Provider, bus realtime.Subscriber) *cart.Engine {
	return cart.NewEngine(provider, bus, pricing.NewCalculator(0.22), nil, nil)
}

func bulkLine(productID uuid.UUID, qty int, price float64, stock int) cart.Line {
	return cart.Line{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: price,
		Stock:     stock,
		Brand:     "Apple",
		Model:     "Lightning Cable",
	}
}

func serialLine(productID uuid.UUID, serial string, price float64) cart.Line {
	unitID := uuid.New()
	return cart.Line{
		ProductID:     productID,
		ProductUnitID: &unitID,
		SerialNumber:  &serial,
		Quantity:      1,
		UnitPrice:     price,
		HasSerial:     true,
		Brand:         "Apple",
		Model:         "iPhone 15",
	}
}

func TestEngine_AddLine_MergesBulkLines(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 2, 9.90, 10)))
	require.NoError(t, e.AddLine(bulkLine(productID, 3, 9.90, 10)))

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestEngine_AddLine_DuplicateSerialIsNoOp(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	line := serialLine(productID, "352099001761481", 899)
	require.NoError(t, e.AddLine(line))
	require.NoError(t, e.AddLine(line))

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestEngine_AddLine_SerializedQuantityForcedToOne(t *testing.T) {
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	line := serialLine(uuid.New(), "356938035643809", 1199)
	line.Quantity = 7
	require.NoError(t, e.AddLine(line))

	assert.Equal(t, 1, e.Lines()[0].Quantity)
}

func TestEngine_AddLine_TwoUnitsSameProduct(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(serialLine(productID, "352099001761481", 899)))
	require.NoError(t, e.AddLine(serialLine(productID, "356938035643809", 899)))

	assert.Len(t, e.Lines(), 2, "distinct serials for one product stay separate lines")
}

func TestEngine_AddLine_RejectsNonPositiveQuantity(t *testing.T) {
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	err := e.AddLine(bulkLine(uuid.New(), 0, 5, 10))
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	assert.Empty(t, e.Lines())
}

func TestEngine_UpdateLine_SerializedQuantityStaysOne(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	line := serialLine(productID, "352099001761481", 899)
	require.NoError(t, e.AddLine(line))

	five := 5
	require.NoError(t, e.UpdateLine(productID, line.IdentityKey(), cart.LineUpdate{Quantity: &five}))
	assert.Equal(t, 1, e.Lines()[0].Quantity)
}

func TestEngine_UpdateLine_PriceAndDiscount(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 2, 10, 10)))

	price := 8.0
	disc := pricing.Percentage(10)
	require.NoError(t, e.UpdateLine(productID, "", cart.LineUpdate{UnitPrice: &price, Discount: &disc}))

	line := e.Lines()[0]
	assert.Equal(t, 8.0, line.UnitPrice)
	assert.Equal(t, disc, line.Discount)
	assert.InDelta(t, 14.4, e.Totals().ItemsTotal, pricing.Tolerance)
}

func TestEngine_UpdateLine_NotFound(t *testing.T) {
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	err := e.UpdateLine(uuid.New(), "", cart.LineUpdate{})
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestEngine_RemoveLine_IdentityScoped(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	first := serialLine(productID, "352099001761481", 899)
	second := serialLine(productID, "356938035643809", 899)
	require.NoError(t, e.AddLine(first))
	require.NoError(t, e.AddLine(second))

	e.RemoveLine(productID, first.IdentityKey())

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, second.IdentityKey(), lines[0].IdentityKey())

	// Absent identity is a no-op.
	e.RemoveLine(productID, "nope")
	assert.Len(t, e.Lines(), 1)
}

func TestEngine_RemoveProduct_RemovesAllLines(t *testing.T) {
	productID := uuid.New()
	other := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(serialLine(productID, "352099001761481", 899)))
	require.NoError(t, e.AddLine(serialLine(productID, "356938035643809", 899)))
	require.NoError(t, e.AddLine(bulkLine(other, 1, 9.90, 10)))

	e.RemoveProduct(productID)

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, other, lines[0].ProductID)
}

func TestEngine_Validation_EmptyCart(t *testing.T) {
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	assert.False(t, e.ValidateSale())
	issues := e.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, cart.IssueEmptyCart, issues[0].Code)
}

func TestEngine_Validation_StockExceeded(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 2})
	e := newTestEngine(provider, nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 3, 9.90, 3)))

	// Snapshot says 3, so the cart passes until the cache learns better.
	assert.True(t, e.ValidateSale())
}

func TestEngine_Validation_StockUsesRefreshedCache(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 2})
	e := newTestEngine(provider, nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 3, 9.90, 3)))
	require.NoError(t, e.RefreshStock(context.Background()))

	assert.False(t, e.Valid())
	issues := e.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, cart.IssueStock, issues[0].Code)
	require.NotNil(t, issues[0].ProductID)
	assert.Equal(t, productID, *issues[0].ProductID)

	// Validation never mutates the cart.
	assert.Equal(t, 3, e.Lines()[0].Quantity)
}

func TestEngine_Validation_SerializedLinesSkipStockCheck(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 0})
	e := newTestEngine(provider, nil)
	defer e.Close()

	require.NoError(t, e.AddLine(serialLine(productID, "352099001761481", 899)))
	require.NoError(t, e.RefreshStock(context.Background()))

	assert.True(t, e.Valid(), "unit presence in the cart is the stock signal")
}

func TestEngine_Validation_HybridSplit(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 1, 90, 5)))
	// Exclusive VAT: total = 90 * 1.22 = 109.80.

	e.SetForm(cart.FormData{
		PaymentMethod: domain.PaymentHybrid,
		Split:         domain.PaymentSplit{CashAmount: 50, CardAmount: 59.80},
	})
	assert.True(t, e.ValidateSale())

	e.SetForm(cart.FormData{
		PaymentMethod: domain.PaymentHybrid,
		Split:         domain.PaymentSplit{CashAmount: 50, CardAmount: 59},
	})
	assert.False(t, e.ValidateSale())
	issues := e.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, cart.IssueSplitMismatch, issues[0].Code)
}

func TestEngine_Validation_SingleMethodIgnoresSplit(t *testing.T) {
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(uuid.New(), 1, 90, 5)))
	e.SetForm(cart.FormData{
		PaymentMethod: domain.PaymentCard,
		Split:         domain.PaymentSplit{CashAmount: 1},
	})

	assert.True(t, e.ValidateSale(), "split amounts are only checked for hybrid payments")
}

func TestEngine_Validation_FlatDiscountBound(t *testing.T) {
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(uuid.New(), 1, 100, 5)))
	// Exclusive: gross total 122.

	e.SetForm(cart.FormData{Discount: pricing.Amount(122)})
	assert.True(t, e.ValidateSale())

	e.SetForm(cart.FormData{Discount: pricing.Amount(130)})
	assert.False(t, e.ValidateSale())
	issues := e.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, cart.IssueDiscountBound, issues[0].Code)
}

func TestEngine_Validation_CollectsAllIssues(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 1})
	e := newTestEngine(provider, nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 5, 100, 5)))
	require.NoError(t, e.RefreshStock(context.Background()))
	e.SetForm(cart.FormData{
		PaymentMethod: domain.PaymentHybrid,
		Split:         domain.PaymentSplit{CashAmount: 1},
		Discount:      pricing.Amount(10000),
	})

	assert.False(t, e.ValidateSale())

	codes := make(map[cart.IssueCode]bool)
	for _, issue := range e.Issues() {
		codes[issue.Code] = true
	}
	assert.True(t, codes[cart.IssueStock])
	assert.True(t, codes[cart.IssueSplitMismatch])
	assert.True(t, codes[cart.IssueDiscountBound])
}

func TestEngine_RefreshStock_FailureIsNonFatal(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 4})
	e := newTestEngine(provider, nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 2, 10, 4)))
	require.NoError(t, e.RefreshStock(context.Background()))

	provider.Err = errors.New("inventory unreachable")
	err := e.RefreshStock(context.Background())
	require.Error(t, err)
	assert.Error(t, e.StockWarning())

	// Stale cached value stays usable.
	level, ok := e.CachedStock(productID)
	require.True(t, ok)
	assert.Equal(t, 4, level)
	assert.True(t, e.ValidateSale())
}

func TestEngine_Reset_PreservesStockCache(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 7})
	e := newTestEngine(provider, nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 1, 10, 7)))
	require.NoError(t, e.RefreshStock(context.Background()))
	e.SetForm(cart.FormData{PaymentMethod: domain.PaymentCard})

	e.Reset()

	assert.Empty(t, e.Lines())
	assert.Equal(t, cart.FormData{}, e.Form())
	level, ok := e.CachedStock(productID)
	require.True(t, ok)
	assert.Equal(t, 7, level)

	// A re-added line picks its snapshot up from the surviving cache.
	require.NoError(t, e.AddLine(bulkLine(productID, 1, 10, 0)))
	assert.Equal(t, 7, e.Lines()[0].Stock)
}

func TestEngine_Subscriptions_TrackCartProductSet(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()
	bus := realtime.NewMockBus()
	e := newTestEngine(inventory.NewMockProvider(nil), bus)

	require.NoError(t, e.AddLine(bulkLine(productA, 1, 10, 5)))
	require.NoError(t, e.AddLine(bulkLine(productB, 1, 10, 5)))
	assert.Equal(t, 1, bus.SubscriberCount(productA))
	assert.Equal(t, 1, bus.SubscriberCount(productB))

	e.RemoveLine(productA, "")
	assert.Equal(t, 0, bus.SubscriberCount(productA))
	assert.Equal(t, 1, bus.SubscriberCount(productB))

	e.Close()
	assert.Equal(t, 0, bus.SubscriberCount(productB))
}

func TestEngine_PushEvent_RefreshesAffectedProduct(t *testing.T) {
	productID := uuid.New()
	provider := inventory.NewMockProvider(map[uuid.UUID]int{productID: 5})
	bus := realtime.NewMockBus()
	e := newTestEngine(provider, bus)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 3, 10, 5)))
	assert.True(t, e.ValidateSale())

	provider.SetStock(productID, 1)
	require.NoError(t, bus.Publish(realtime.Event{Kind: realtime.EventProductUpdated, ProductID: productID}))

	assert.Eventually(t, func() bool {
		level, ok := e.CachedStock(productID)
		return ok && level == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, e.ValidateSale())
}

func TestEngine_Payload(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(productID, 2, 33.333, 5)))
	e.SetForm(cart.FormData{Discount: pricing.Percentage(10), VATIncluded: true})

	payload, err := e.Payload()
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentCash, payload.PaymentMethod, "payment method defaults to cash")
	assert.Equal(t, string(pricing.DiscountPercentage), payload.DiscountType)
	assert.True(t, payload.VATIncluded)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, 33.33, payload.Items[0].UnitPrice, "monetary figures are rounded at the boundary")
	assert.Equal(t, payload.Subtotal, pricing.Round2(payload.Subtotal))
	assert.Equal(t, payload.Total, pricing.Round2(payload.Total))
}

func TestEngine_Payload_InvalidCart(t *testing.T) {
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	_, err := e.Payload()
	assert.ErrorIs(t, err, cart.ErrCartInvalid)
}

func TestEngine_InitLines_BypassesMerge(t *testing.T) {
	productID := uuid.New()
	e := newTestEngine(inventory.NewMockProvider(nil), nil)
	defer e.Close()

	require.NoError(t, e.AddLine(bulkLine(uuid.New(), 1, 5, 5)))

	e.InitLines([]cart.Line{
		bulkLine(productID, 2, 10, 5),
		bulkLine(productID, 1, 12, 5),
	})

	assert.Len(t, e.Lines(), 2, "persisted lines load verbatim, no merge")
}
