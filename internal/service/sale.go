package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
	"github.com/tipatpati/golden-phone-management-sub007/internal/realtime"
	"github.com/tipatpati/golden-phone-management-sub007/internal/telemetry"
)

// saleService implements domain.SaleService using PostgreSQL. It is the
// authoritative validator: whatever the cart engine concluded, stock and
// unit availability are re-verified here under row locks.
type saleService struct {
	pool      *pgxpool.Pool
	publisher realtime.Publisher
	logger    *slog.Logger
	metrics   *telemetry.Metrics
}

// Compile-time check that saleService implements domain.SaleService.
var _ domain.SaleService = (*saleService)(nil)

// NewSaleService creates a PostgreSQL-backed sale service. publisher and
// metrics may be nil.
func NewSaleService(pool *pgxpool.Pool, publisher realtime.Publisher, logger *slog.Logger, metrics *telemetry.Metrics) domain.SaleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &saleService{pool: pool, publisher: publisher, logger: logger, metrics: metrics}
}

// Create commits a sale inside a transaction: structural and payment checks,
// per-line stock verification under FOR UPDATE, stock decrement, unit
// state transition, sale + item insertion.
func (s *saleService) Create(ctx context.Context, payload domain.SalePayload) (*domain.Sale, error) {
	if err := s.validatePayload(payload); err != nil {
		if s.metrics != nil {
			s.metrics.SaleRejected.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, domain.Internal(err, "sale.create", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	for _, item := range payload.Items {
		if item.ProductUnitID != nil {
			if err := s.claimUnit(ctx, tx, item); err != nil {
				if s.metrics != nil && domain.IsCode(err, domain.ECONFLICT) {
					s.metrics.SaleRejected.WithLabelValues("unit_sold").Inc()
				}
				return nil, err
			}
			continue
		}
		if err := s.claimStock(ctx, tx, item); err != nil {
			if s.metrics != nil && domain.IsCode(err, domain.ECONFLICT) {
				s.metrics.SaleRejected.WithLabelValues("stock").Inc()
			}
			return nil, err
		}
	}

	sale := domain.Sale{
		ID:            uuid.New(),
		ClientID:      payload.ClientID,
		PaymentMethod: payload.PaymentMethod,
		Split:         payload.Split,
		DiscountType:  payload.DiscountType,
		DiscountValue: payload.DiscountValue,
		VATIncluded:   payload.VATIncluded,
		Subtotal:      payload.Subtotal,
		Discount:      payload.Discount,
		Tax:           payload.Tax,
		Total:         payload.Total,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sales (id, number, client_id, payment_method,
			cash_amount, card_amount, bank_transfer_amount,
			discount_type, discount_value, vat_included,
			subtotal, discount, tax, total)
		VALUES ($1, 'S-' || to_char(nextval('sale_number_seq'), 'FM000000'),
			$2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING number, created_at`,
		sale.ID, sale.ClientID, sale.PaymentMethod,
		sale.Split.CashAmount, sale.Split.CardAmount, sale.Split.BankTransferAmount,
		nullIfEmpty(sale.DiscountType), sale.DiscountValue, sale.VATIncluded,
		sale.Subtotal, sale.Discount, sale.Tax, sale.Total,
	).Scan(&sale.Number, &sale.CreatedAt)
	if err != nil {
		return nil, domain.Internal(err, "sale.create", "failed to insert sale")
	}

	for _, item := range payload.Items {
		item.ID = uuid.New()
		item.SaleID = sale.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_unit_id,
				serial_number, quantity, unit_price, discount_type, discount_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.SaleID, item.ProductID, item.ProductUnitID,
			item.SerialNumber, item.Quantity, item.UnitPrice,
			nullIfEmpty(item.DiscountType), item.DiscountValue)
		if err != nil {
			return nil, domain.Internal(err, "sale.create", "failed to insert sale item")
		}
		sale.Items = append(sale.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, "sale.create", "failed to commit sale")
	}

	s.logger.Info("sale committed",
		"sale_id", sale.ID, "number", sale.Number,
		"total", sale.Total, "payment_method", sale.PaymentMethod,
		"items", len(sale.Items))

	if s.metrics != nil {
		s.metrics.SalesCreated.WithLabelValues(string(sale.PaymentMethod)).Inc()
		s.metrics.SaleValue.Observe(sale.Total)
		s.metrics.SaleItemCount.Observe(float64(len(sale.Items)))
	}

	s.notifyStockChanged(payload.Items)

	return &sale, nil
}

// validatePayload mirrors the engine's gate. The engine is advisory;
// a caller bypassing it still cannot commit bad data.
func (s *saleService) validatePayload(payload domain.SalePayload) error {
	if len(payload.Items) == 0 {
		return domain.ErrSaleEmpty
	}
	if !payload.PaymentMethod.Valid() {
		return domain.ErrInvalidPayment
	}
	if payload.PaymentMethod == domain.PaymentHybrid &&
		!pricing.AmountsEqual(payload.Split.Total(), payload.Total) {
		return domain.ErrSplitMismatch
	}
	for _, item := range payload.Items {
		if item.Quantity <= 0 {
			return domain.Invalid("sale.create", "item quantity must be positive")
		}
		if item.ProductUnitID != nil && item.Quantity != 1 {
			return domain.Invalid("sale.create", "serialized items have quantity 1")
		}
		if item.UnitPrice < 0 || math.IsNaN(item.UnitPrice) {
			return domain.Invalid("sale.create", "item price must be non-negative")
		}
	}
	return nil
}

// claimUnit transitions an available unit to sold, failing on a unit
// already claimed by another sale.
func (s *saleService) claimUnit(ctx context.Context, tx pgx.Tx, item domain.SaleItem) error {
	var status string
	err := tx.QueryRow(ctx,
		`SELECT status FROM product_units WHERE id = $1 FOR UPDATE`,
		item.ProductUnitID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("sale.create", "product unit", item.ProductUnitID.String())
	}
	if err != nil {
		return domain.Internal(err, "sale.create", "failed to lock product unit")
	}
	if status != domain.UnitAvailable {
		return domain.ErrUnitSold
	}

	_, err = tx.Exec(ctx,
		`UPDATE product_units SET status = $1 WHERE id = $2`,
		domain.UnitSold, item.ProductUnitID)
	if err != nil {
		return domain.Internal(err, "sale.create", "failed to mark unit sold")
	}
	return nil
}

// claimStock decrements on-hand stock for a non-serialized line, failing
// when availability changed unfavorably since the cart snapshot.
func (s *saleService) claimStock(ctx context.Context, tx pgx.Tx, item domain.SaleItem) error {
	var stock int
	err := tx.QueryRow(ctx,
		`SELECT stock FROM products WHERE id = $1 FOR UPDATE`,
		item.ProductID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("sale.create", "product", item.ProductID.String())
	}
	if err != nil {
		return domain.Internal(err, "sale.create", "failed to lock product")
	}
	if stock < item.Quantity {
		return &domain.Error{
			Code:    domain.ECONFLICT,
			Op:      "sale.create",
			Message: fmt.Sprintf("only %d of product %s in stock", stock, item.ProductID),
			Err:     domain.ErrStockExceeded,
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE products SET stock = stock - $1 WHERE id = $2`,
		item.Quantity, item.ProductID)
	if err != nil {
		return domain.Internal(err, "sale.create", "failed to decrement stock")
	}
	return nil
}

// notifyStockChanged publishes one change event per affected product so
// open carts refresh their availability. Best-effort.
func (s *saleService) notifyStockChanged(items []domain.SaleItem) {
	if s.publisher == nil {
		return
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}

		kind := realtime.EventProductUpdated
		if item.ProductUnitID != nil {
			kind = realtime.EventUnitUpdated
		}
		event := realtime.Event{Kind: kind, ProductID: item.ProductID, UnitID: item.ProductUnitID}
		if err := s.publisher.Publish(event); err != nil {
			s.logger.Warn("failed to publish stock change", "product_id", item.ProductID, "error", err)
		}
	}
}

// Get retrieves a sale with its items.
func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	var sale domain.Sale
	var discountType *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, number, client_id, payment_method,
			cash_amount, card_amount, bank_transfer_amount,
			discount_type, discount_value, vat_included,
			subtotal, discount, tax, total, created_at
		FROM sales WHERE id = $1`, id).Scan(
		&sale.ID, &sale.Number, &sale.ClientID, &sale.PaymentMethod,
		&sale.Split.CashAmount, &sale.Split.CardAmount, &sale.Split.BankTransferAmount,
		&discountType, &sale.DiscountValue, &sale.VATIncluded,
		&sale.Subtotal, &sale.Discount, &sale.Tax, &sale.Total, &sale.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSaleNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "sale.get", "failed to get sale")
	}
	if discountType != nil {
		sale.DiscountType = *discountType
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, sale_id, product_id, product_unit_id, serial_number,
			quantity, unit_price, discount_type, discount_value
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, domain.Internal(err, "sale.get", "failed to get sale items")
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		var itemDiscountType *string
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID,
			&item.ProductUnitID, &item.SerialNumber, &item.Quantity,
			&item.UnitPrice, &itemDiscountType, &item.DiscountValue); err != nil {
			return nil, domain.Internal(err, "sale.get", "failed to scan sale item")
		}
		if itemDiscountType != nil {
			item.DiscountType = *itemDiscountType
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "sale.get", "failed to read sale items")
	}

	return &sale, nil
}

// List returns recent sales without items, newest first.
func (s *saleService) List(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, number, client_id, payment_method,
			cash_amount, card_amount, bank_transfer_amount,
			discount_type, discount_value, vat_included,
			subtotal, discount, tax, total, created_at
		FROM sales ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, domain.Internal(err, "sale.list", "failed to list sales")
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		var sale domain.Sale
		var discountType *string
		if err := rows.Scan(&sale.ID, &sale.Number, &sale.ClientID, &sale.PaymentMethod,
			&sale.Split.CashAmount, &sale.Split.CardAmount, &sale.Split.BankTransferAmount,
			&discountType, &sale.DiscountValue, &sale.VATIncluded,
			&sale.Subtotal, &sale.Discount, &sale.Tax, &sale.Total, &sale.CreatedAt); err != nil {
			return nil, domain.Internal(err, "sale.list", "failed to scan sale")
		}
		if discountType != nil {
			sale.DiscountType = *discountType
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "sale.list", "failed to read sales")
	}

	return sales, nil
}

// nullIfEmpty maps an empty discount type to SQL NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
