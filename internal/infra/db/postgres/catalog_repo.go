package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	domain "github.com/bryanwahyu/orderflow-ai/internal/domain/catalog"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ResolveBatch performs one bulk lookup scoped to the tenant. SKUs missing
// from the result were not found; that is not an error here.
func (r *CatalogRepository) ResolveBatch(ctx context.Context, tenant string, skus []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	const q = `
SELECT id, tenant_id, sku, name, price, created_at
FROM products
WHERE tenant_id=$1 AND sku = ANY($2);
`
	rows, err := r.db.QueryContext(ctx, q, tenant, pq.Array(skus))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		out[p.SKU] = &p
	}
	return out, rows.Err()
}

// List all products for a tenant
func (r *CatalogRepository) List(ctx context.Context, tenant string) ([]*domain.Product, error) {
	const q = `
SELECT id, tenant_id, sku, name, price, created_at
FROM products
WHERE tenant_id=$1 ORDER BY name;
`
	rows, err := r.db.QueryContext(ctx, q, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) Create(ctx context.Context, p *domain.Product) error {
	const q = `
INSERT INTO products (id, tenant_id, sku, name, price, created_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.TenantID, p.SKU, p.Name, p.Price, p.CreatedAt)
	return err
}
