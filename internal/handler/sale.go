package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
)

// SaleHandler serves committed sales.
type SaleHandler struct {
	sales domain.SaleService
}

func NewSaleHandler(sales domain.SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

type saleItemResponse struct {
	ProductID     string  `json:"product_id"`
	ProductUnitID *string `json:"product_unit_id,omitempty"`
	SerialNumber  *string `json:"serial_number,omitempty"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	DiscountType  string  `json:"discount_type,omitempty"`
	DiscountValue float64 `json:"discount_value,omitempty"`
}

type saleResponse struct {
	ID                 string             `json:"id"`
	Number             string             `json:"number"`
	ClientID           *string            `json:"client_id,omitempty"`
	PaymentMethod      string             `json:"payment_method"`
	CashAmount         float64            `json:"cash_amount,omitempty"`
	CardAmount         float64            `json:"card_amount,omitempty"`
	BankTransferAmount float64            `json:"bank_transfer_amount,omitempty"`
	DiscountType       string             `json:"discount_type,omitempty"`
	DiscountValue      float64            `json:"discount_value,omitempty"`
	VATIncluded        bool               `json:"vat_included"`
	Subtotal           float64            `json:"subtotal"`
	Discount           float64            `json:"discount"`
	Tax                float64            `json:"tax"`
	Total              float64            `json:"total"`
	Items              []saleItemResponse `json:"items"`
	CreatedAt          time.Time          `json:"created_at"`
}

func saleResponseFrom(s *domain.Sale) saleResponse {
	resp := saleResponse{
		ID:                 s.ID.String(),
		Number:             s.Number,
		PaymentMethod:      string(s.PaymentMethod),
		CashAmount:         s.Split.CashAmount,
		CardAmount:         s.Split.CardAmount,
		BankTransferAmount: s.Split.BankTransferAmount,
		DiscountType:       s.DiscountType,
		DiscountValue:      s.DiscountValue,
		VATIncluded:        s.VATIncluded,
		Subtotal:           s.Subtotal,
		Discount:           s.Discount,
		Tax:                s.Tax,
		Total:              s.Total,
		Items:              make([]saleItemResponse, len(s.Items)),
		CreatedAt:          s.CreatedAt,
	}
	if s.ClientID != nil {
		id := s.ClientID.String()
		resp.ClientID = &id
	}
	for i, item := range s.Items {
		ir := saleItemResponse{
			ProductID:     item.ProductID.String(),
			SerialNumber:  item.SerialNumber,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			DiscountType:  item.DiscountType,
			DiscountValue: item.DiscountValue,
		}
		if item.ProductUnitID != nil {
			id := item.ProductUnitID.String()
			ir.ProductUnitID = &id
		}
		resp.Items[i] = ir
	}
	return resp
}

// List handles GET /api/sales?limit=n, newest first.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, r, domain.Invalid("sale.list", "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	sales, err := h.sales.List(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]saleResponse, len(sales))
	for i := range sales {
		resp[i] = saleResponseFrom(&sales[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/sales/{id}.
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, domain.Invalid("sale.get", "invalid sale id"))
		return
	}

	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, saleResponseFrom(sale))
}
