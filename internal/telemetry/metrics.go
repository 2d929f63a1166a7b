package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for sale-flow observability.
type Metrics struct {
	// Sales
	SalesCreated  *prometheus.CounterVec // payment_method
	SaleValue     prometheus.Histogram
	SaleItemCount prometheus.Histogram
	SaleRejected  *prometheus.CounterVec // reason: stock, unit_sold, invalid

	// Cart engine
	CartLinesAdded     prometheus.Counter
	CartLinesRemoved   prometheus.Counter
	CartResets         prometheus.Counter
	ValidationFailures *prometheus.CounterVec // code

	// Stock reconciliation
	StockRefreshes       prometheus.Counter
	StockRefreshFailures prometheus.Counter
	RealtimeEvents       prometheus.Counter

	// HTTP
	HTTPRequests *prometheus.CounterVec // method, path, status
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "salecart"
	}

	return &Metrics{
		SalesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_created_total",
				Help:      "Total sales committed",
			},
			[]string{"payment_method"},
		),
		SaleValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sale_value_eur",
				Help:      "Committed sale totals in EUR",
				Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		SaleItemCount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sale_item_count",
				Help:      "Line items per committed sale",
				Buckets:   []float64{1, 2, 3, 5, 10, 20},
			},
		),
		SaleRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_rejected_total",
				Help:      "Sales rejected at commit-time revalidation",
			},
			[]string{"reason"},
		),
		CartLinesAdded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cart_lines_added_total",
				Help:      "Total cart line additions (merges included)",
			},
		),
		CartLinesRemoved: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cart_lines_removed_total",
				Help:      "Total cart line removals",
			},
		),
		CartResets: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cart_resets_total",
				Help:      "Total cart resets",
			},
		),
		ValidationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cart_validation_failures_total",
				Help:      "Validation issues raised during cart recomputes",
			},
			[]string{"code"},
		),
		StockRefreshes: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_refreshes_total",
				Help:      "Total stock cache refresh attempts",
			},
		),
		StockRefreshFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_refresh_failures_total",
				Help:      "Stock cache refreshes that failed (stale data retained)",
			},
		),
		RealtimeEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_events_total",
				Help:      "Inventory change notifications received",
			},
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
