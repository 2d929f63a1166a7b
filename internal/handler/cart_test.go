package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipatpati/golden-phone-management-sub007/internal/cart"
	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
	"github.com/tipatpati/golden-phone-management-sub007/internal/handler"
	"github.com/tipatpati/golden-phone-management-sub007/internal/inventory"
	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
	"github.com/tipatpati/golden-phone-management-sub007/internal/router"
)

// fakeProductService serves a fixed catalog.
type fakeProductService struct {
	products map[uuid.UUID]domain.Product
	units    map[string]domain.ProductUnit
}

func (f *fakeProductService) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeProductService) ListProducts(_ context.Context, _ string) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductService) GetUnitBySerial(_ context.Context, serial string) (*domain.ProductUnit, *domain.Product, error) {
	u, ok := f.units[serial]
	if !ok {
		return nil, nil, domain.ErrUnitNotFound
	}
	p := f.products[u.ProductID]
	return &u, &p, nil
}

func (f *fakeProductService) ListAvailableUnits(_ context.Context, productID uuid.UUID) ([]domain.ProductUnit, error) {
	var out []domain.ProductUnit
	for _, u := range f.units {
		if u.ProductID == productID && u.Status == domain.UnitAvailable {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeSaleService records the committed payload.
type fakeSaleService struct {
	created *domain.SalePayload
	err     error
}

func (f *fakeSaleService) Create(_ context.Context, payload domain.SalePayload) (*domain.Sale, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &payload
	return &domain.Sale{
		ID:            uuid.New(),
		Number:        "S-000042",
		PaymentMethod: payload.PaymentMethod,
		Split:         payload.Split,
		Subtotal:      payload.Subtotal,
		Discount:      payload.Discount,
		Tax:           payload.Tax,
		Total:         payload.Total,
		Items:         payload.Items,
	}, nil
}

func (f *fakeSaleService) Get(_ context.Context, _ uuid.UUID) (*domain.Sale, error) {
	return nil, domain.ErrSaleNotFound
}

func (f *fakeSaleService) List(_ context.Context, _ int) ([]domain.Sale, error) {
	return nil, nil
}

type cartFixture struct {
	server   *httptest.Server
	sales    *fakeSaleService
	bulkID   uuid.UUID
	serialID uuid.UUID
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	bulkID := uuid.New()
	serialID := uuid.New()
	unitID := uuid.New()

	products := &fakeProductService{
		products: map[uuid.UUID]domain.Product{
			bulkID: {
				ID: bulkID, Brand: "Anker", Model: "PowerLine", Price: 19.90,
				MinPrice: 15, MaxPrice: 25, Stock: 10,
			},
			serialID: {
				ID: serialID, Brand: "Apple", Model: "iPhone 15", Price: 899,
				MinPrice: 850, MaxPrice: 999, HasSerial: true,
			},
		},
		units: map[string]domain.ProductUnit{
			"352099001761481": {
				ID: unitID, ProductID: serialID, SerialNumber: "352099001761481",
				Status: domain.UnitAvailable,
			},
		},
	}
	sales := &fakeSaleService{}

	provider := inventory.NewMockProvider(map[uuid.UUID]int{bulkID: 10, serialID: 1})
	newEngine := func() *cart.Engine {
		return cart.NewEngine(provider, nil, pricing.NewCalculator(0.22), nil, nil)
	}

	carts := handler.NewCartHandler(newEngine, products, sales, nil)

	r := router.New()
	r.Post("/api/carts", carts.Create)
	r.Get("/api/carts/{id}", carts.Get)
	r.Delete("/api/carts/{id}", carts.Destroy)
	r.Post("/api/carts/{id}/lines", carts.AddLine)
	r.Put("/api/carts/{id}/lines", carts.UpdateLine)
	r.Delete("/api/carts/{id}/lines", carts.RemoveLine)
	r.Put("/api/carts/{id}/form", carts.SetForm)
	r.Post("/api/carts/{id}/validate", carts.Validate)
	r.Post("/api/carts/{id}/commit", carts.Commit)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &cartFixture{server: server, sales: sales, bulkID: bulkID, serialID: serialID}
}

func (f *cartFixture) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func (f *cartFixture) createCart(t *testing.T) string {
	resp, body := f.do(t, http.MethodPost, "/api/carts", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func TestCartHandler_CreateAndGet(t *testing.T) {
	f := newCartFixture(t)

	id := f.createCart(t)
	resp, body := f.do(t, http.MethodGet, "/api/carts/"+id, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, false, body["valid"], "a fresh cart fails the empty-cart gate")
}

func TestCartHandler_UnknownCart(t *testing.T) {
	f := newCartFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/carts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, domain.ENOTFOUND, body["code"])
}

func TestCartHandler_AddBulkLine(t *testing.T) {
	f := newCartFixture(t)
	id := f.createCart(t)

	resp, body := f.do(t, http.MethodPost, "/api/carts/"+id+"/lines", map[string]interface{}{
		"product_id": f.bulkID.String(),
		"quantity":   2,
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	lines := body["lines"].([]interface{})
	require.Len(t, lines, 1)
	line := lines[0].(map[string]interface{})
	assert.Equal(t, float64(2), line["quantity"])
	assert.Equal(t, true, body["valid"])
	assert.InDelta(t, 2*19.90*1.22, body["total"].(float64), pricing.Tolerance)
}

func TestCartHandler_AddSerializedLineRequiresSerial(t *testing.T) {
	f := newCartFixture(t)
	id := f.createCart(t)

	resp, _ := f.do(t, http.MethodPost, "/api/carts/"+id+"/lines", map[string]interface{}{
		"product_id": f.serialID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/carts/"+id+"/lines", map[string]interface{}{
		"serial_number": "352099001761481",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lines := body["lines"].([]interface{})
	require.Len(t, lines, 1)
	line := lines[0].(map[string]interface{})
	assert.Equal(t, "352099001761481", line["serial_number"])
	assert.Equal(t, float64(1), line["quantity"])
}

func TestCartHandler_Commit(t *testing.T) {
	f := newCartFixture(t)
	id := f.createCart(t)

	resp, _ := f.do(t, http.MethodPost, "/api/carts/"+id+"/lines", map[string]interface{}{
		"product_id": f.bulkID.String(),
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/api/carts/"+id+"/form", map[string]interface{}{
		"payment_method": "card",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/carts/"+id+"/commit", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "S-000042", body["number"])

	require.NotNil(t, f.sales.created)
	assert.Equal(t, domain.PaymentCard, f.sales.created.PaymentMethod)
	assert.InDelta(t, pricing.Round2(19.90*1.22), f.sales.created.Total, pricing.Tolerance)

	// The cart is destroyed after a successful commit.
	resp, _ = f.do(t, http.MethodGet, "/api/carts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCartHandler_CommitInvalidCartReturnsIssues(t *testing.T) {
	f := newCartFixture(t)
	id := f.createCart(t)

	resp, body := f.do(t, http.MethodPost, "/api/carts/"+id+"/commit", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	issues := body["issues"].([]interface{})
	require.Len(t, issues, 1)
	assert.Nil(t, f.sales.created)
}

func TestCartHandler_RemoveLineQuery(t *testing.T) {
	f := newCartFixture(t)
	id := f.createCart(t)

	resp, _ := f.do(t, http.MethodPost, "/api/carts/"+id+"/lines", map[string]interface{}{
		"product_id": f.bulkID.String(),
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	path := fmt.Sprintf("/api/carts/%s/lines?product_id=%s", id, f.bulkID)
	resp, body := f.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["lines"])
}
