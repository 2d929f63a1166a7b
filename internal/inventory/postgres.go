package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProvider implements Provider against the product catalog tables.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// Compile-time check that PostgresProvider implements Provider.
var _ Provider = (*PostgresProvider)(nil)

// NewPostgresProvider creates a Postgres-backed effective stock provider.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

const effectiveStockQuery = `
SELECT p.id,
       CASE WHEN p.has_serial
            THEN (SELECT COUNT(*)::int FROM product_units u
                  WHERE u.product_id = p.id AND u.status = 'available')
            ELSE p.stock
       END AS effective_stock
FROM products p
WHERE p.id = ANY($1)`

// EffectiveStock returns the effective stock for one product.
func (p *PostgresProvider) EffectiveStock(ctx context.Context, productID uuid.UUID) (int, error) {
	levels, err := p.EffectiveStockBatch(ctx, []uuid.UUID{productID})
	if err != nil {
		return 0, err
	}
	level, ok := levels[productID]
	if !ok {
		return 0, fmt.Errorf("product %s not found", productID)
	}
	return level, nil
}

// EffectiveStockBatch returns effective stock for the given products.
func (p *PostgresProvider) EffectiveStockBatch(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	levels := make(map[uuid.UUID]int, len(productIDs))
	if len(productIDs) == 0 {
		return levels, nil
	}

	rows, err := p.pool.Query(ctx, effectiveStockQuery, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query effective stock: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var level int
		if err := rows.Scan(&id, &level); err != nil {
			return nil, fmt.Errorf("failed to scan effective stock row: %w", err)
		}
		levels[id] = level
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read effective stock rows: %w", err)
	}

	return levels, nil
}
