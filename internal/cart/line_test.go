package cart_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tipatpati/golden-phone-management-sub007/internal/cart"
	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
)

func TestLine_IdentityKey(t *testing.T) {
	unitID := uuid.New()
	serial := "352099001761481"

	bulk := cart.Line{ProductID: uuid.New(), Quantity: 3}
	assert.Equal(t, "", bulk.IdentityKey())

	bySerial := cart.Line{ProductID: uuid.New(), HasSerial: true, SerialNumber: &serial, ProductUnitID: &unitID}
	assert.Equal(t, serial, bySerial.IdentityKey())

	byUnit := cart.Line{ProductID: uuid.New(), HasSerial: true, ProductUnitID: &unitID}
	assert.Equal(t, unitID.String(), byUnit.IdentityKey(), "falls back to the unit id without a serial")
}

func TestLine_Net(t *testing.T) {
	l := cart.Line{Quantity: 4, UnitPrice: 25}
	assert.InDelta(t, 100.0, l.Net(), 1e-9)

	l.Discount = pricing.Percentage(25)
	assert.InDelta(t, 75.0, l.Net(), 1e-9)

	l.Discount = pricing.Amount(30)
	assert.InDelta(t, 70.0, l.Net(), 1e-9)
}
