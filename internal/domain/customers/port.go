package customers

import "context"

// Repository port for customer records. Create exists for provisioning and
// seeding; the pipeline itself never writes customers.
type Repository interface {
	List(ctx context.Context, tenant string) ([]*Customer, error)
	Create(ctx context.Context, c *Customer) error
}
