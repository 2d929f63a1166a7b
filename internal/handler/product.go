package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
)

// ProductHandler serves catalog lookups for the till.
type ProductHandler struct {
	products domain.ProductService
}

func NewProductHandler(products domain.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type productResponse struct {
	ID        string  `json:"id"`
	Brand     string  `json:"brand"`
	Model     string  `json:"model"`
	Year      int     `json:"year,omitempty"`
	Price     float64 `json:"price"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	HasSerial bool    `json:"has_serial"`
	Stock     int     `json:"stock"`
}

func productResponseFrom(p *domain.Product) productResponse {
	return productResponse{
		ID:        p.ID.String(),
		Brand:     p.Brand,
		Model:     p.Model,
		Year:      p.Year,
		Price:     p.Price,
		MinPrice:  p.MinPrice,
		MaxPrice:  p.MaxPrice,
		HasSerial: p.HasSerial,
		Stock:     p.Stock,
	}
}

// List handles GET /api/products?q=search.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i := range products {
		resp[i] = productResponseFrom(&products[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, domain.Invalid("product.get", "invalid product id"))
		return
	}

	product, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, productResponseFrom(product))
}

type unitResponse struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	SerialNumber string  `json:"serial_number"`
	Barcode      string  `json:"barcode,omitempty"`
	Color        string  `json:"color,omitempty"`
	StorageGB    int     `json:"storage_gb,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Status       string  `json:"status"`
}

func unitResponseFrom(u *domain.ProductUnit) unitResponse {
	return unitResponse{
		ID:           u.ID.String(),
		ProductID:    u.ProductID.String(),
		SerialNumber: u.SerialNumber,
		Barcode:      u.Barcode,
		Color:        u.Color,
		StorageGB:    u.StorageGB,
		Price:        u.Price,
		Status:       u.Status,
	}
}

// ListUnits handles GET /api/products/{id}/units: available units only.
func (h *ProductHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, domain.Invalid("product.list_units", "invalid product id"))
		return
	}

	units, err := h.products.ListAvailableUnits(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]unitResponse, len(units))
	for i := range units {
		resp[i] = unitResponseFrom(&units[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// LookupSerial handles GET /api/units/{serial}: barcode scanner path.
func (h *ProductHandler) LookupSerial(w http.ResponseWriter, r *http.Request) {
	serial := r.PathValue("serial")
	if serial == "" {
		respondError(w, r, domain.Invalid("product.lookup_serial", "serial number is required"))
		return
	}

	unit, product, err := h.products.GetUnitBySerial(r.Context(), serial)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Unit    unitResponse    `json:"unit"`
		Product productResponse `json:"product"`
	}{unitResponseFrom(unit), productResponseFrom(product)})
}
