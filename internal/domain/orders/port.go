package orders

import "context"

// Summary is the per-tenant analytics rollup for dashboard cards.
type Summary struct {
	TotalOrders    int            `json:"total_orders"`
	TotalRevenue   float64        `json:"total_revenue"`
	AvgOrderValue  float64        `json:"avg_order_value"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
	OpenAnomalies  int            `json:"open_anomalies"`
}

// Repository port (interface untuk persistence). Order creation happens
// through the pipeline's transactional store and reviewer actions through
// their own unit of work; these are the read operations on committed state.
type Repository interface {
	Get(ctx context.Context, tenant string, id OrderID) (*Order, error)
	List(ctx context.Context, tenant string, status Status, customerID string, limit, offset int) ([]*Order, error)
	Summary(ctx context.Context, tenant string) (Summary, error)
}
