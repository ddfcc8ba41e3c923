package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Get by ID + Tenant, with items and anomalies loaded
func (r *OrderRepository) Get(ctx context.Context, tenant string, id domain.OrderID) (*domain.Order, error) {
	const q = `
SELECT id, tenant_id, customer_id, COALESCE(interaction_id::text, ''), status, total_amount, created_at
FROM orders
WHERE tenant_id=$1 AND id=$2;
`
	row := r.db.QueryRowContext(ctx, q, tenant, id)

	var o domain.Order
	if err := row.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.InteractionID, &o.Status, &o.TotalAmount, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	items, err := r.itemsByOrder(ctx, string(o.ID))
	if err != nil {
		return nil, err
	}
	o.Items = items

	anomalies, err := r.anomaliesByOrder(ctx, string(o.ID))
	if err != nil {
		return nil, err
	}
	o.Anomalies = anomalies
	return &o, nil
}

// seq preserves insertion order within the order.
func (r *OrderRepository) itemsByOrder(ctx context.Context, orderID string) ([]*domain.Item, error) {
	const q = `
SELECT id, order_id, product_id, quantity, unit_price
FROM order_items
WHERE order_id=$1
ORDER BY seq;
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (r *OrderRepository) anomaliesByOrder(ctx context.Context, orderID string) ([]*domain.Anomaly, error) {
	const q = `
SELECT id, order_id, rule_code, description, severity_score, resolved
FROM anomalies
WHERE order_id=$1
ORDER BY seq;
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Anomaly
	for rows.Next() {
		var a domain.Anomaly
		if err := rows.Scan(&a.ID, &a.OrderID, &a.RuleCode, &a.Description, &a.SeverityScore, &a.Resolved); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// List orders per tenant, newest first, optionally filtered by status and
// customer
func (r *OrderRepository) List(ctx context.Context, tenant string, status domain.Status, customerID string, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
SELECT id, tenant_id, customer_id, COALESCE(interaction_id::text, ''), status, total_amount, created_at
FROM orders
WHERE tenant_id=$1`
	args := []interface{}{tenant}
	if status != "" {
		args = append(args, status)
		q += ` AND status=` + placeholder(len(args))
	}
	if customerID != "" {
		args = append(args, customerID)
		q += ` AND customer_id=` + placeholder(len(args))
	}
	q += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.InteractionID, &o.Status, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// Summary aggregates dashboard stats per tenant.
func (r *OrderRepository) Summary(ctx context.Context, tenant string) (domain.Summary, error) {
	s := domain.Summary{OrdersByStatus: map[string]int{}}

	const totals = `
SELECT COUNT(*), COALESCE(SUM(total_amount),0)
FROM orders
WHERE tenant_id=$1;
`
	if err := r.db.QueryRowContext(ctx, totals, tenant).Scan(&s.TotalOrders, &s.TotalRevenue); err != nil {
		return domain.Summary{}, err
	}
	if s.TotalOrders > 0 {
		s.AvgOrderValue = s.TotalRevenue / float64(s.TotalOrders)
	}

	const byStatus = `
SELECT status, COUNT(*)
FROM orders
WHERE tenant_id=$1
GROUP BY status;
`
	rows, err := r.db.QueryContext(ctx, byStatus, tenant)
	if err != nil {
		return domain.Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.Summary{}, err
		}
		s.OrdersByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return domain.Summary{}, err
	}

	const open = `
SELECT COUNT(*)
FROM anomalies a
JOIN orders o ON o.id = a.order_id
WHERE o.tenant_id=$1 AND a.resolved=FALSE;
`
	if err := r.db.QueryRowContext(ctx, open, tenant).Scan(&s.OpenAnomalies); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}
