package postgres

import (
	"context"
	"database/sql"

	domain "github.com/bryanwahyu/orderflow-ai/internal/domain/customers"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// List all customers for a tenant, by company name
func (r *CustomerRepository) List(ctx context.Context, tenant string) ([]*domain.Customer, error) {
	const q = `
SELECT id, tenant_id, company_name, contact_name, email, phone, payment_terms, shipping_preference, notes, created_at
FROM customers
WHERE tenant_id=$1 ORDER BY company_name;
`
	rows, err := r.db.QueryContext(ctx, q, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.CompanyName, &c.ContactName, &c.Email, &c.Phone,
			&c.PaymentTerms, &c.ShippingPreference, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	const q = `
INSERT INTO customers (id, tenant_id, company_name, contact_name, email, phone, payment_terms, shipping_preference, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.TenantID, c.CompanyName, c.ContactName, c.Email, c.Phone,
		c.PaymentTerms, c.ShippingPreference, c.Notes, c.CreatedAt)
	return err
}
