package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/tipatpati/golden-phone-management-sub007/internal/cart"
	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
)

// CartHandler exposes sale construction over HTTP. Each cart is one engine
// instance held in an in-memory registry; the cart id is returned on create
// and scoped per operator session by the caller.
type CartHandler struct {
	newEngine func() *cart.Engine
	products  domain.ProductService
	sales     domain.SaleService
	logger    *slog.Logger

	mu    sync.Mutex
	carts map[uuid.UUID]*cart.Engine
}

// NewCartHandler creates the cart API handler. newEngine constructs a fully
// wired engine per cart.
func NewCartHandler(newEngine func() *cart.Engine, products domain.ProductService, sales domain.SaleService, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{
		newEngine: newEngine,
		products:  products,
		sales:     sales,
		logger:    logger,
		carts:     make(map[uuid.UUID]*cart.Engine),
	}
}

func (h *CartHandler) engine(w http.ResponseWriter, r *http.Request) (uuid.UUID, *cart.Engine, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, domain.Invalid("cart.lookup", "invalid cart id"))
		return uuid.Nil, nil, false
	}

	h.mu.Lock()
	engine, ok := h.carts[id]
	h.mu.Unlock()
	if !ok {
		respondError(w, r, domain.NotFound("cart.lookup", "cart", id.String()))
		return uuid.Nil, nil, false
	}
	return id, engine, true
}

// Create handles POST /api/carts.
func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := uuid.New()
	engine := h.newEngine()

	h.mu.Lock()
	h.carts[id] = engine
	h.mu.Unlock()

	h.logger.Info("cart created", "cart_id", id)
	respondJSON(w, http.StatusCreated, h.stateResponse(id, engine))
}

// Get handles GET /api/carts/{id}.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

// Destroy handles DELETE /api/carts/{id}: tears the engine down and drops
// it from the registry.
func (h *CartHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	engine.Close()
	h.mu.Lock()
	delete(h.carts, id)
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

type addLineRequest struct {
	ProductID     string  `json:"product_id" validate:"omitempty,uuid"`
	SerialNumber  string  `json:"serial_number"`
	Quantity      int     `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice     float64 `json:"unit_price" validate:"omitempty,min=0"`
	DiscountType  string  `json:"discount_type" validate:"omitempty,oneof=percentage amount"`
	DiscountValue float64 `json:"discount_value" validate:"omitempty,min=0"`
}

// AddLine handles POST /api/carts/{id}/lines. A serial number resolves a
// specific unit (quantity always 1); otherwise product_id adds an aggregate
// line.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req addLineRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var line cart.Line
	switch {
	case req.SerialNumber != "":
		unit, product, err := h.products.GetUnitBySerial(r.Context(), req.SerialNumber)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if unit.Status != domain.UnitAvailable {
			respondError(w, r, domain.ErrUnitNotForSale)
			return
		}
		price := product.Price
		if unit.Price > 0 {
			price = unit.Price
		}
		unitID := unit.ID
		serial := unit.SerialNumber
		line = cart.Line{
			ProductID:     product.ID,
			ProductUnitID: &unitID,
			SerialNumber:  &serial,
			Quantity:      1,
			UnitPrice:     price,
			MinPrice:      product.MinPrice,
			MaxPrice:      product.MaxPrice,
			Stock:         product.Stock,
			HasSerial:     true,
			Brand:         product.Brand,
			Model:         product.Model,
		}
	case req.ProductID != "":
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			respondError(w, r, domain.Invalid("cart.add_line", "invalid product id"))
			return
		}
		product, err := h.products.GetProduct(r.Context(), productID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if product.HasSerial {
			respondError(w, r, domain.Invalid("cart.add_line", "serialized products are added by serial number"))
			return
		}
		quantity := req.Quantity
		if quantity == 0 {
			quantity = 1
		}
		line = cart.Line{
			ProductID: product.ID,
			Quantity:  quantity,
			UnitPrice: product.Price,
			MinPrice:  product.MinPrice,
			MaxPrice:  product.MaxPrice,
			Stock:     product.Stock,
			Brand:     product.Brand,
			Model:     product.Model,
		}
	default:
		respondError(w, r, domain.Invalid("cart.add_line", "product_id or serial_number is required"))
		return
	}

	if req.UnitPrice > 0 {
		line.UnitPrice = req.UnitPrice
	}
	if req.DiscountType != "" {
		line.Discount = pricing.Discount{
			Type:  pricing.DiscountType(req.DiscountType),
			Value: req.DiscountValue,
		}
	}

	// Best-effort refresh so validation sees current availability; a
	// failure leaves the cache stale but usable.
	if err := engine.RefreshStock(r.Context(), line.ProductID); err != nil {
		h.logger.Warn("stock refresh failed during add", "product_id", line.ProductID, "error", err)
	}

	if err := engine.AddLine(line); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

type updateLineRequest struct {
	ProductID     string   `json:"product_id" validate:"required,uuid"`
	IdentityKey   string   `json:"identity_key"`
	Quantity      *int     `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice     *float64 `json:"unit_price" validate:"omitempty,min=0"`
	DiscountType  *string  `json:"discount_type" validate:"omitempty,oneof=percentage amount"`
	DiscountValue float64  `json:"discount_value" validate:"omitempty,min=0"`
}

// UpdateLine handles PUT /api/carts/{id}/lines.
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req updateLineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondError(w, r, domain.Invalid("cart.update_line", "invalid product id"))
		return
	}

	upd := cart.LineUpdate{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	}
	if req.DiscountType != nil {
		upd.Discount = &pricing.Discount{
			Type:  pricing.DiscountType(*req.DiscountType),
			Value: req.DiscountValue,
		}
	}

	if err := engine.UpdateLine(productID, req.IdentityKey, upd); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

// RemoveLine handles DELETE /api/carts/{id}/lines. Query parameters:
// product_id (required), identity_key (empty for aggregate lines),
// all=true removes every line for the product.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(r.URL.Query().Get("product_id"))
	if err != nil {
		respondError(w, r, domain.Invalid("cart.remove_line", "invalid product id"))
		return
	}

	if r.URL.Query().Get("all") == "true" {
		engine.RemoveProduct(productID)
	} else {
		engine.RemoveLine(productID, r.URL.Query().Get("identity_key"))
	}

	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

type formRequest struct {
	PaymentMethod      string  `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer hybrid"`
	CashAmount         float64 `json:"cash_amount" validate:"omitempty,min=0"`
	CardAmount         float64 `json:"card_amount" validate:"omitempty,min=0"`
	BankTransferAmount float64 `json:"bank_transfer_amount" validate:"omitempty,min=0"`
	DiscountType       string  `json:"discount_type" validate:"omitempty,oneof=percentage amount"`
	DiscountValue      float64 `json:"discount_value" validate:"omitempty,min=0"`
	VATIncluded        bool    `json:"vat_included"`
	ClientID           string  `json:"client_id" validate:"omitempty,uuid"`
}

// SetForm handles PUT /api/carts/{id}/form.
func (h *CartHandler) SetForm(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req formRequest
	if !decodeBody(w, r, &req) {
		return
	}

	form := cart.FormData{
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Split: domain.PaymentSplit{
			CashAmount:         req.CashAmount,
			CardAmount:         req.CardAmount,
			BankTransferAmount: req.BankTransferAmount,
		},
		Discount: pricing.Discount{
			Type:  pricing.DiscountType(req.DiscountType),
			Value: req.DiscountValue,
		},
		VATIncluded: req.VATIncluded,
	}
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			respondError(w, r, domain.Invalid("cart.set_form", "invalid client id"))
			return
		}
		form.ClientID = &clientID
	}

	engine.SetForm(form)
	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

// Reset handles POST /api/carts/{id}/reset: empties lines and form data.
// The engine and its stock cache survive for the next sale.
func (h *CartHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	engine.Reset()
	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

// Validate handles POST /api/carts/{id}/validate: one final recompute, no
// forced network refresh.
func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	engine.ValidateSale()
	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

// RefreshStock handles POST /api/carts/{id}/refresh-stock for every product
// in the cart.
func (h *CartHandler) RefreshStock(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	if err := engine.RefreshStock(r.Context()); err != nil {
		// Non-fatal: stale figures stay usable, surface as a warning.
		h.logger.Warn("stock refresh failed", "cart_id", id, "error", err)
	}
	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

type loadSaleRequest struct {
	SaleID string `json:"sale_id" validate:"required,uuid"`
}

// LoadSale handles POST /api/carts/{id}/load-sale: edit mode. The persisted
// items replace the cart wholesale, bypassing merge logic.
func (h *CartHandler) LoadSale(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req loadSaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	saleID, err := uuid.Parse(req.SaleID)
	if err != nil {
		respondError(w, r, domain.Invalid("cart.load_sale", "invalid sale id"))
		return
	}

	sale, err := h.sales.Get(r.Context(), saleID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	lines := make([]cart.Line, len(sale.Items))
	for i, item := range sale.Items {
		line := cart.Line{
			ProductID:     item.ProductID,
			ProductUnitID: item.ProductUnitID,
			SerialNumber:  item.SerialNumber,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			HasSerial:     item.ProductUnitID != nil,
		}
		if item.DiscountType != "" {
			line.Discount = pricing.Discount{
				Type:  pricing.DiscountType(item.DiscountType),
				Value: item.DiscountValue,
			}
		}
		if product, err := h.products.GetProduct(r.Context(), item.ProductID); err == nil {
			line.Brand = product.Brand
			line.Model = product.Model
			line.MinPrice = product.MinPrice
			line.MaxPrice = product.MaxPrice
			line.Stock = product.Stock
		}
		lines[i] = line
	}

	engine.InitLines(lines)
	engine.SetForm(cart.FormData{
		PaymentMethod: sale.PaymentMethod,
		Split:         sale.Split,
		Discount: pricing.Discount{
			Type:  pricing.DiscountType(sale.DiscountType),
			Value: sale.DiscountValue,
		},
		VATIncluded: sale.VATIncluded,
		ClientID:    sale.ClientID,
	})

	respondJSON(w, http.StatusOK, h.stateResponse(id, engine))
}

// Commit handles POST /api/carts/{id}/commit: builds the normalized payload
// and hands it to the sale service, which revalidates authoritatively. On
// success the cart is destroyed.
func (h *CartHandler) Commit(w http.ResponseWriter, r *http.Request) {
	id, engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	payload, err := engine.Payload()
	if err != nil {
		respondJSON(w, http.StatusBadRequest, struct {
			Error  string       `json:"error"`
			Code   string       `json:"code"`
			Issues []cart.Issue `json:"issues"`
		}{domain.ErrorMessage(err), domain.ErrorCode(err), engine.Issues()})
		return
	}

	sale, err := h.sales.Create(r.Context(), payload)
	if err != nil {
		respondError(w, r, err)
		return
	}

	engine.Close()
	h.mu.Lock()
	delete(h.carts, id)
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, saleResponseFrom(sale))
}

// lineResponse is the JSON view of one cart line.
type lineResponse struct {
	ProductID     string  `json:"product_id"`
	ProductUnitID *string `json:"product_unit_id,omitempty"`
	SerialNumber  *string `json:"serial_number,omitempty"`
	IdentityKey   string  `json:"identity_key"`
	Brand         string  `json:"brand"`
	Model         string  `json:"model"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	DiscountType  string  `json:"discount_type,omitempty"`
	DiscountValue float64 `json:"discount_value,omitempty"`
	Stock         int     `json:"stock"`
	HasSerial     bool    `json:"has_serial"`
	LineTotal     float64 `json:"line_total"`
}

type cartStateResponse struct {
	ID           string         `json:"id"`
	Lines        []lineResponse `json:"lines"`
	Subtotal     float64        `json:"subtotal"`
	Discount     float64        `json:"discount"`
	Tax          float64        `json:"tax"`
	Total        float64        `json:"total"`
	Valid        bool           `json:"valid"`
	Issues       []cart.Issue   `json:"issues"`
	StockWarning string         `json:"stock_warning,omitempty"`
}

func (h *CartHandler) stateResponse(id uuid.UUID, engine *cart.Engine) cartStateResponse {
	lines := engine.Lines()
	totals := engine.Totals()

	resp := cartStateResponse{
		ID:       id.String(),
		Lines:    make([]lineResponse, len(lines)),
		Subtotal: pricing.Round2(totals.Subtotal),
		Discount: pricing.Round2(totals.Discount),
		Tax:      pricing.Round2(totals.Tax),
		Total:    pricing.Round2(totals.Total),
		Valid:    engine.Valid(),
		Issues:   engine.Issues(),
	}
	if resp.Issues == nil {
		resp.Issues = []cart.Issue{}
	}
	if warn := engine.StockWarning(); warn != nil {
		resp.StockWarning = "stock figures may be stale: inventory lookup failed"
	}

	for i, l := range lines {
		lr := lineResponse{
			ProductID:     l.ProductID.String(),
			SerialNumber:  l.SerialNumber,
			IdentityKey:   l.IdentityKey(),
			Brand:         l.Brand,
			Model:         l.Model,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			MinPrice:      l.MinPrice,
			MaxPrice:      l.MaxPrice,
			DiscountType:  string(l.Discount.Type),
			DiscountValue: l.Discount.Value,
			Stock:         l.Stock,
			HasSerial:     l.HasSerial,
			LineTotal:     pricing.Round2(l.Net()),
		}
		if l.ProductUnitID != nil {
			s := l.ProductUnitID.String()
			lr.ProductUnitID = &s
		}
		resp.Lines[i] = lr
	}

	return resp
}
