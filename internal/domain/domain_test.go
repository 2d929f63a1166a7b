package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
)

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, domain.PaymentCash.Valid())
	assert.True(t, domain.PaymentCard.Valid())
	assert.True(t, domain.PaymentBankTransfer.Valid())
	assert.True(t, domain.PaymentHybrid.Valid())
	assert.False(t, domain.PaymentMethod("check").Valid())
	assert.False(t, domain.PaymentMethod("").Valid())
}

func TestPaymentSplit_Total(t *testing.T) {
	split := domain.PaymentSplit{CashAmount: 50, CardAmount: 59.80, BankTransferAmount: 10}
	assert.InDelta(t, 119.80, split.Total(), 1e-9)
}

func TestClient_DisplayName(t *testing.T) {
	business := domain.Client{Type: "business", CompanyName: "TechnoPhone SRL", FirstName: "Mario"}
	assert.Equal(t, "TechnoPhone SRL", business.DisplayName())

	individual := domain.Client{Type: "individual", FirstName: "Mario", LastName: "Rossi"}
	assert.Equal(t, "Mario Rossi", individual.DisplayName())

	firstOnly := domain.Client{Type: "individual", FirstName: "Mario"}
	assert.Equal(t, "Mario", firstOnly.DisplayName())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(domain.ErrUnitSold))
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(errors.New("boom")))
	assert.Equal(t, "", domain.ErrorCode(nil))
}

func TestWrapError(t *testing.T) {
	wrapped := domain.WrapError(domain.ErrStockExceeded, domain.EINTERNAL, "sale.create", "commit failed")
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(wrapped), "the outermost code wins")
	assert.ErrorIs(t, wrapped, domain.ErrStockExceeded)
	assert.Nil(t, domain.WrapError(nil, domain.EINTERNAL, "sale.create", "ignored"))
}

func TestErrorMessage_HidesInternalDetails(t *testing.T) {
	err := domain.Internal(errors.New("pq: connection reset"), "sale.create", "commit failed")
	msg := domain.ErrorMessage(err)
	assert.NotContains(t, msg, "connection reset")
}
