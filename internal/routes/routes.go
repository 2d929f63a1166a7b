// Package routes wires handlers onto the router.
package routes

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tipatpati/golden-phone-management-sub007/internal/handler"
	"github.com/tipatpati/golden-phone-management-sub007/internal/middleware"
	"github.com/tipatpati/golden-phone-management-sub007/internal/router"
	"github.com/tipatpati/golden-phone-management-sub007/internal/telemetry"
)

// Deps carries everything route registration needs.
type Deps struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	Carts    *handler.CartHandler
	Products *handler.ProductHandler
	Clients  *handler.ClientHandler
	Sales    *handler.SaleHandler
	Health   *handler.HealthHandler
}

// Register builds the router with the full middleware stack and all routes.
func Register(deps Deps) *router.Router {
	r := router.New(
		middleware.Recover,
		middleware.RequestID,
		middleware.WithRequestLogger(deps.Logger),
		middleware.HTTPMetrics(deps.Metrics),
	)

	r.Get("/healthz", deps.Health.Healthz)
	r.Handle("GET", "/metrics", promhttp.Handler())

	// Catalog.
	r.Get("/api/products", deps.Products.List)
	r.Get("/api/products/{id}", deps.Products.Get)
	r.Get("/api/products/{id}/units", deps.Products.ListUnits)
	r.Get("/api/units/{serial}", deps.Products.LookupSerial)

	// Customers.
	r.Get("/api/clients", deps.Clients.Search)
	r.Get("/api/clients/{id}", deps.Clients.Get)
	r.Post("/api/clients", deps.Clients.Create)

	// Carts.
	r.Post("/api/carts", deps.Carts.Create)
	r.Get("/api/carts/{id}", deps.Carts.Get)
	r.Delete("/api/carts/{id}", deps.Carts.Destroy)
	r.Post("/api/carts/{id}/lines", deps.Carts.AddLine)
	r.Put("/api/carts/{id}/lines", deps.Carts.UpdateLine)
	r.Delete("/api/carts/{id}/lines", deps.Carts.RemoveLine)
	r.Put("/api/carts/{id}/form", deps.Carts.SetForm)
	r.Post("/api/carts/{id}/reset", deps.Carts.Reset)
	r.Post("/api/carts/{id}/validate", deps.Carts.Validate)
	r.Post("/api/carts/{id}/refresh-stock", deps.Carts.RefreshStock)
	r.Post("/api/carts/{id}/load-sale", deps.Carts.LoadSale)
	r.Post("/api/carts/{id}/commit", deps.Carts.Commit)

	// Sales.
	r.Get("/api/sales", deps.Sales.List)
	r.Get("/api/sales/{id}", deps.Sales.Get)

	return r
}
