package orders

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/orderflow-ai/internal/domain/orders"
)

// Store is the transactional boundary for reviewer actions. Each action
// runs inside one transaction so a crash or mid-action error cannot leave
// a partial write behind (e.g. a resolved anomaly on an order that never
// reverted to DRAFT).
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the unit of work for one reviewer action. UpdateStatusFrom is
// conditional on the current status so concurrent transitions are not
// silently overwritten. Rollback after Commit must be a no-op.
type Tx interface {
	GetOrder(ctx context.Context, tenant string, id domain.OrderID) (*domain.Order, error)
	UpdateStatusFrom(ctx context.Context, tenant string, id domain.OrderID, from []domain.Status, to domain.Status) (bool, error)
	GetAnomaly(ctx context.Context, tenant string, anomalyID string) (*domain.Anomaly, error)
	MarkAnomalyResolved(ctx context.Context, tenant string, anomalyID string) error
	CountUnresolvedAnomalies(ctx context.Context, tenant string, orderID string) (int, error)
	Commit() error
	Rollback() error
}

// Service implements reviewer actions and read use-cases over committed
// orders. Reads go through Repo; each reviewer action runs as one Store
// transaction.
type Service struct {
	Repo  domain.Repository
	Store Store
	Log   *zap.Logger
}

func NewService(repo domain.Repository, store Store, log *zap.Logger) *Service {
	return &Service{Repo: repo, Store: store, Log: log}
}

// Confirm approves an order: DRAFT or FLAGGED -> CONFIRMED. Any other
// source status is a conflict. The update only fires from an allowed
// status, so a concurrent transition cannot be clobbered.
func (s *Service) Confirm(ctx context.Context, tenant string, id domain.OrderID) (*domain.Order, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ok, err := tx.UpdateStatusFrom(ctx, tenant, id,
		[]domain.Status{domain.StatusDraft, domain.StatusFlagged}, domain.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		// missing order surfaces as ErrNotFound here
		order, err := tx.GetOrder(ctx, tenant, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: cannot confirm order in status %s", domain.ErrStatusConflict, order.Status)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Log.Info("order confirmed",
		zap.String("tenant_id", tenant),
		zap.String("order_id", string(id)))
	return s.Repo.Get(ctx, tenant, id)
}

// ResolveAnomaly marks an anomaly resolved. Resolving an already-resolved
// anomaly is a no-op returning the unchanged anomaly. When the last
// unresolved anomaly on a FLAGGED order resolves, the order reverts to
// DRAFT in the same transaction; human confirmation is still required.
func (s *Service) ResolveAnomaly(ctx context.Context, tenant string, anomalyID string) (*domain.Anomaly, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a, err := tx.GetAnomaly(ctx, tenant, anomalyID)
	if err != nil {
		return nil, err
	}
	if a.Resolved {
		return a, nil
	}
	if err := tx.MarkAnomalyResolved(ctx, tenant, anomalyID); err != nil {
		return nil, err
	}
	a.Resolved = true

	order, err := tx.GetOrder(ctx, tenant, domain.OrderID(a.OrderID))
	if err != nil {
		return nil, err
	}
	reverted := false
	if order.Status == domain.StatusFlagged {
		open, err := tx.CountUnresolvedAnomalies(ctx, tenant, a.OrderID)
		if err != nil {
			return nil, err
		}
		if open == 0 {
			if _, err := tx.UpdateStatusFrom(ctx, tenant, order.ID,
				[]domain.Status{domain.StatusFlagged}, domain.StatusDraft); err != nil {
				return nil, err
			}
			reverted = true
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if reverted {
		s.Log.Info("all anomalies resolved, order reverted to draft",
			zap.String("tenant_id", tenant),
			zap.String("order_id", a.OrderID))
	}
	return a, nil
}

// Get returns one order with items and anomalies.
func (s *Service) Get(ctx context.Context, tenant string, id domain.OrderID) (*domain.Order, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// List returns orders for a tenant, optionally filtered by status and
// customer.
func (s *Service) List(ctx context.Context, tenant string, status domain.Status, customerID string, limit, offset int) ([]*domain.Order, error) {
	return s.Repo.List(ctx, tenant, status, customerID, limit, offset)
}

// Summary returns the per-tenant analytics rollup.
func (s *Service) Summary(ctx context.Context, tenant string) (domain.Summary, error) {
	return s.Repo.Summary(ctx, tenant)
}
