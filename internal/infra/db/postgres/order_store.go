package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	apporders "github.com/bryanwahyu/orderflow-ai/internal/application/orders"
	domain "github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
)

// OrderStore implements the reviewer-action unit of work. Every action
// commits or rolls back as a whole, so a resolved anomaly and the DRAFT
// revert of its order land together.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Begin(ctx context.Context) (apporders.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &orderTx{tx: tx}, nil
}

type orderTx struct {
	tx *sql.Tx
}

// GetOrder locks the order row for the rest of the transaction so
// concurrent reviewer actions on the same order serialize.
func (t *orderTx) GetOrder(ctx context.Context, tenant string, id domain.OrderID) (*domain.Order, error) {
	const q = `
SELECT id, tenant_id, customer_id, COALESCE(interaction_id::text, ''), status, total_amount, created_at
FROM orders
WHERE tenant_id=$1 AND id=$2
FOR UPDATE;
`
	row := t.tx.QueryRowContext(ctx, q, tenant, id)

	var o domain.Order
	if err := row.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.InteractionID, &o.Status, &o.TotalAmount, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// UpdateStatusFrom transitions the order only when its current status is
// in the allowed set. Zero rows means the caller lost the race (or the
// order does not exist); distinguishing the two is the caller's job.
func (t *orderTx) UpdateStatusFrom(ctx context.Context, tenant string, id domain.OrderID, from []domain.Status, to domain.Status) (bool, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}
	const q = `UPDATE orders SET status=$3 WHERE tenant_id=$1 AND id=$2 AND status = ANY($4);`
	res, err := t.tx.ExecContext(ctx, q, tenant, id, to, pq.Array(allowed))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetAnomaly fetches one anomaly, tenant-scoped through its owning order.
func (t *orderTx) GetAnomaly(ctx context.Context, tenant string, anomalyID string) (*domain.Anomaly, error) {
	const q = `
SELECT a.id, a.order_id, a.rule_code, a.description, a.severity_score, a.resolved
FROM anomalies a
JOIN orders o ON o.id = a.order_id
WHERE o.tenant_id=$1 AND a.id=$2;
`
	row := t.tx.QueryRowContext(ctx, q, tenant, anomalyID)

	var a domain.Anomaly
	if err := row.Scan(&a.ID, &a.OrderID, &a.RuleCode, &a.Description, &a.SeverityScore, &a.Resolved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (t *orderTx) MarkAnomalyResolved(ctx context.Context, tenant string, anomalyID string) error {
	const q = `
UPDATE anomalies a
SET resolved=TRUE
FROM orders o
WHERE o.id = a.order_id AND o.tenant_id=$1 AND a.id=$2;
`
	res, err := t.tx.ExecContext(ctx, q, tenant, anomalyID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *orderTx) CountUnresolvedAnomalies(ctx context.Context, tenant string, orderID string) (int, error) {
	const q = `
SELECT COUNT(*)
FROM anomalies a
JOIN orders o ON o.id = a.order_id
WHERE o.tenant_id=$1 AND a.order_id=$2 AND a.resolved=FALSE;
`
	var n int
	if err := t.tx.QueryRowContext(ctx, q, tenant, orderID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *orderTx) Commit() error { return t.tx.Commit() }

// Rollback after Commit returns sql.ErrTxDone, which callers ignore.
func (t *orderTx) Rollback() error { return t.tx.Rollback() }
