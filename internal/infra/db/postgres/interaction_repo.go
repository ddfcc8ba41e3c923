package postgres

import (
	"context"
	"database/sql"

	domain "github.com/bryanwahyu/orderflow-ai/internal/domain/interactions"
)

type InteractionRepository struct {
	db *sql.DB
}

func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Get by ID + Tenant
func (r *InteractionRepository) Get(ctx context.Context, tenant string, id domain.InteractionID) (*domain.Interaction, error) {
	const q = `
SELECT id, tenant_id, customer_id, source_type, raw_asset_url, status, created_at
FROM interactions
WHERE tenant_id=$1 AND id=$2;
`
	row := r.db.QueryRowContext(ctx, q, tenant, id)

	var in domain.Interaction
	if err := row.Scan(&in.ID, &in.TenantID, &in.CustomerID, &in.SourceType, &in.RawAssetURL, &in.Status, &in.CreatedAt); err != nil {
		return nil, err
	}
	return &in, nil
}

// Latest interactions per tenant
func (r *InteractionRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, customer_id, source_type, raw_asset_url, status, created_at
FROM interactions
WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(&in.ID, &in.TenantID, &in.CustomerID, &in.SourceType, &in.RawAssetURL, &in.Status, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &in)
	}
	return out, rows.Err()
}
