package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
)

// productService implements domain.ProductService using PostgreSQL.
type productService struct {
	pool *pgxpool.Pool
}

var _ domain.ProductService = (*productService)(nil)

// NewProductService creates a PostgreSQL-backed product service.
func NewProductService(pool *pgxpool.Pool) domain.ProductService {
	return &productService{pool: pool}
}

const productColumns = `id, brand, model, year, price, min_price, max_price, has_serial, stock`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Brand, &p.Model, &p.Year, &p.Price,
		&p.MinPrice, &p.MaxPrice, &p.HasSerial, &p.Stock)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduct retrieves a product by id.
func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "product.get", "failed to get product")
	}
	return p, nil
}

// ListProducts returns catalog products matching an optional search term.
func (s *productService) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE $1 = '' OR brand ILIKE '%' || $1 || '%' OR model ILIKE '%' || $1 || '%'
		ORDER BY brand, model
		LIMIT 100`, search)
	if err != nil {
		return nil, domain.Internal(err, "product.list", "failed to list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.Internal(err, "product.list", "failed to scan product")
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "product.list", "failed to read products")
	}

	return products, nil
}

// GetUnitBySerial resolves a serialized unit by serial number or barcode.
func (s *productService) GetUnitBySerial(ctx context.Context, serial string) (*domain.ProductUnit, *domain.Product, error) {
	var u domain.ProductUnit
	err := s.pool.QueryRow(ctx, `
		SELECT id, product_id, serial_number, barcode, color, storage_gb, price, status
		FROM product_units
		WHERE serial_number = $1 OR barcode = $1`, serial).Scan(
		&u.ID, &u.ProductID, &u.SerialNumber, &u.Barcode, &u.Color,
		&u.StorageGB, &u.Price, &u.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrUnitNotFound
	}
	if err != nil {
		return nil, nil, domain.Internal(err, "product.unit_by_serial", "failed to get unit")
	}

	p, err := s.GetProduct(ctx, u.ProductID)
	if err != nil {
		return nil, nil, err
	}

	return &u, p, nil
}

// ListAvailableUnits returns the available units for a serialized product.
func (s *productService) ListAvailableUnits(ctx context.Context, productID uuid.UUID) ([]domain.ProductUnit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, serial_number, barcode, color, storage_gb, price, status
		FROM product_units
		WHERE product_id = $1 AND status = $2
		ORDER BY serial_number`, productID, domain.UnitAvailable)
	if err != nil {
		return nil, domain.Internal(err, "product.list_units", "failed to list units")
	}
	defer rows.Close()

	var units []domain.ProductUnit
	for rows.Next() {
		var u domain.ProductUnit
		if err := rows.Scan(&u.ID, &u.ProductID, &u.SerialNumber, &u.Barcode,
			&u.Color, &u.StorageGB, &u.Price, &u.Status); err != nil {
			return nil, domain.Internal(err, "product.list_units", "failed to scan unit")
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "product.list_units", "failed to read units")
	}

	return units, nil
}
