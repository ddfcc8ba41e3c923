package postgres

import (
	"context"
	"database/sql"

	"github.com/bryanwahyu/orderflow-ai/internal/application/pipeline"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/analysis"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/interactions"
	"github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
)

// Store implements the pipeline's transactional persistence boundary.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateInteraction durably persists the PENDING interaction in its own
// transaction, before any external call is made.
func (s *Store) CreateInteraction(ctx context.Context, in *interactions.Interaction) error {
	const q = `
INSERT INTO interactions (id, tenant_id, customer_id, source_type, raw_asset_url, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	_, err := s.db.ExecContext(ctx, q,
		in.ID, in.TenantID, in.CustomerID, in.SourceType, in.RawAssetURL, in.Status, in.CreatedAt)
	return err
}

// MarkInteractionFailed is the best-effort write after a run failure,
// independent of the rolled-back pipeline transaction.
func (s *Store) MarkInteractionFailed(ctx context.Context, tenant string, id interactions.InteractionID) error {
	const q = `UPDATE interactions SET status=$3 WHERE tenant_id=$1 AND id=$2;`
	_, err := s.db.ExecContext(ctx, q, tenant, id, interactions.StatusFailed)
	return err
}

func (s *Store) Begin(ctx context.Context) (pipeline.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &storeTx{tx: tx}, nil
}

// storeTx is the unit of work for one pipeline run. The *sql.Tx is owned
// exclusively by that run.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) CreateAnalysisLog(ctx context.Context, l *analysis.Log) error {
	const q = `
INSERT INTO analysis_logs (id, interaction_id, transcript_text, raw_extraction_json, confidence_score, created_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err := t.tx.ExecContext(ctx, q,
		l.ID, l.InteractionID, l.TranscriptText, l.RawExtractionJSON, l.ConfidenceScore, l.CreatedAt)
	return err
}

func (t *storeTx) CreateOrder(ctx context.Context, o *orders.Order) error {
	const q = `
INSERT INTO orders (id, tenant_id, customer_id, interaction_id, status, total_amount, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	_, err := t.tx.ExecContext(ctx, q,
		o.ID, o.TenantID, o.CustomerID, nullString(o.InteractionID), o.Status, o.TotalAmount, o.CreatedAt)
	return err
}

func (t *storeTx) CreateOrderItem(ctx context.Context, it *orders.Item) error {
	const q = `
INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
VALUES ($1,$2,$3,$4,$5);
`
	_, err := t.tx.ExecContext(ctx, q, it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice)
	return err
}

func (t *storeTx) CreateAnomaly(ctx context.Context, a *orders.Anomaly) error {
	const q = `
INSERT INTO anomalies (id, order_id, rule_code, description, severity_score, resolved)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err := t.tx.ExecContext(ctx, q, a.ID, a.OrderID, a.RuleCode, a.Description, a.SeverityScore, a.Resolved)
	return err
}

func (t *storeTx) SetOrderTotal(ctx context.Context, id orders.OrderID, total float64) error {
	const q = `UPDATE orders SET total_amount=$2 WHERE id=$1;`
	_, err := t.tx.ExecContext(ctx, q, id, total)
	return err
}

func (t *storeTx) SetOrderStatus(ctx context.Context, id orders.OrderID, status orders.Status) error {
	const q = `UPDATE orders SET status=$2 WHERE id=$1;`
	_, err := t.tx.ExecContext(ctx, q, id, status)
	return err
}

func (t *storeTx) MarkInteractionProcessed(ctx context.Context, id interactions.InteractionID) error {
	const q = `UPDATE interactions SET status=$2 WHERE id=$1;`
	_, err := t.tx.ExecContext(ctx, q, id, interactions.StatusProcessed)
	return err
}

func (t *storeTx) Commit() error { return t.tx.Commit() }

// Rollback after Commit returns sql.ErrTxDone, which callers ignore.
func (t *storeTx) Rollback() error { return t.tx.Rollback() }
